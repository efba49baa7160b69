// Command saneprocess gates an autonomous coding agent's tool calls behind
// procedural requirements, a circuit breaker and an operator bypass.
package main

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	Execute()
}
