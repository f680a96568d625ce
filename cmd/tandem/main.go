// Command tandem runs the language tutor as an HTTP server, an MCP server,
// or a one-shot CLI.
package main

import (
	"os"
)

// version is set at build time.
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
