package fsmfile

import (
	"math/rand/v2"
	"slices"
)

// RandomName is the template-style name under which front ends offer
// RandomDFA.
const RandomName = "random"

// RandomDFA describes a complete DFA over {a, b} with three to five
// states, q0 as the start state and one or two accepting states. The same
// seed always gives the same diagram.
func RandomDFA(seed uint64) Structure {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	n := 3 + rng.IntN(3)

	var accept []int
	for range 1 + rng.IntN(2) {
		if id := rng.IntN(n); !slices.Contains(accept, id) {
			accept = append(accept, id)
		}
	}

	s := Structure{Metadata: &Metadata{Title: "Random DFA"}}
	for i := 0; i < n; i++ {
		id := i
		x := 150 + float64(i)*150 + rng.Float64()*100
		y := 200 + rng.Float64()*200
		s.States = append(s.States, StateSpec{
			ID:       &id,
			X:        &x,
			Y:        &y,
			IsStart:  i == 0,
			IsAccept: slices.Contains(accept, i),
		})
	}
	for i := 0; i < n; i++ {
		for _, sym := range []string{"a", "b"} {
			from, to := i, rng.IntN(n)
			s.Transitions = append(s.Transitions, TransitionSpec{
				From:    &from,
				To:      &to,
				Symbols: []string{sym},
			})
		}
	}
	return s
}
