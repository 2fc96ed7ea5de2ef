// Command grenc is the CLI entry point: `gren init`, `gren make`, `gren
// install`, `gren repl`, `gren diff`, `gren bump`, `gren publish`.
package main

func main() {
	Execute()
}
