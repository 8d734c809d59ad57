// bestdocctl is the operations CLI for the bestdoc pipeline: run a
// processing cycle against a local batch file, inspect pending groups,
// or list the ledger. See cmd.go for the command definitions.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
