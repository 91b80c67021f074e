// Command rulenet runs rule-based inference over chunk strengths: one-shot
// from the command line, or as a gRPC service that hot-reloads its rules.
package main

func main() {
	Execute()
}
