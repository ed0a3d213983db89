// Command yocore watches append-only JSONL transcript files produced by
// AI coding assistants and serves the project/session/message/memory model
// derived from them over HTTP+SSE and/or stdio MCP.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	app := newApp(Version)
	err := app.Run(os.Args)
	if err == nil {
		return
	}

	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	if exitErr, ok := err.(cli.ExitCoder); ok {
		os.Exit(exitErr.ExitCode())
	}
	os.Exit(1)
}
