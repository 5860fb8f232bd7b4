// Command fsm evaluates, converts and serves finite automaton diagrams.
package main

func main() {
	Execute()
}
