// Command handoff-trace views and analyzes lifecycle trace files written by
// handoff-demo with the -trace-file flag.
//
// Usage:
//
//	handoff-trace <command> [flags] <file.htrace>
//
// Commands:
//
//	view     View trace file in human-readable format
//	export   Export trace file as JSON lines
//	stats    Show statistics about the trace file
//
// Examples:
//
//	# View all events
//	handoff-trace view run.htrace
//
//	# View only session transitions
//	handoff-trace view -resource session run.htrace
//
//	# View what the worker task did
//	handoff-trace view -task Creator run.htrace
//
//	# Show per-run outcomes
//	handoff-trace stats run.htrace
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tlshandoff/handoff-go/cmd/handoff-trace/commands"
)

const usage = `handoff-trace - Handoff Lifecycle Trace Analyzer

Usage:
  handoff-trace <command> [flags] <file.htrace>

Commands:
  view     View trace file in human-readable format
  export   Export trace file as JSON lines
  stats    Show statistics about the trace file

Use "handoff-trace <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `handoff-trace view - View trace file in human-readable format

Usage:
  handoff-trace view [flags] <file.htrace>

Flags:
`)
		fs.PrintDefaults()
	}

	var opts commands.ViewOptions
	fs.StringVar(&opts.RunID, "run", "", "Filter by run ID")
	fs.StringVar(&opts.Task, "task", "", "Filter by task name")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (lifecycle, load, signal, error)")
	fs.StringVar(&opts.Resource, "resource", "", "Filter by resource (context, session, task, storage)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunView(fs.Arg(0), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `handoff-trace export - Export trace file as JSON lines

Usage:
  handoff-trace export [flags] <file.htrace>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunExport(fs.Arg(0), *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `handoff-trace stats - Show statistics about the trace file

Usage:
  handoff-trace stats <file.htrace>
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunStatsCommand(fs.Arg(0), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
