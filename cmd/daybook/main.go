package main

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _             _                 _
  | |           | |               | |
  | | __ _ _   _| |__   ___   ___ | | __
  |/ / _' | | | | '_ \ / _ \ / _ \| |/ /
  | | (_| | |_| | |_) | (_) | (_) |   <
  |_|\__,_|\__, |_.__/ \___/ \___/|_|\_\
            __/ |
           |___/
  Local-first diary

  Usage: daybook <command> [options]
         daybook --help

  MCP server mode requires piped input.`)
}

// resolveArgs maps a bare invocation with piped stdin to the mcp command.
func resolveArgs(args []string, interactive bool) []string {
	if len(args) < 2 && !interactive {
		return append(args, "mcp")
	}
	return args
}

func main() {
	interactive := isTerminal()

	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && interactive {
		printBanner()
		return
	}

	env := &cliEnv{}
	cliApp := newCLIApp(env)
	err := cliApp.Run(resolveArgs(os.Args, interactive))
	if closeErr := env.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
