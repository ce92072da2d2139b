// Command accountabilityme is the operator-facing dispatcher for the
// ledger core (§4.13): a small set of subcommands, each its own
// flag.NewFlagSet, grounded on the teacher lineage's own cmd/helm
// dispatcher shape.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint, separated from main for testability.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "verify-chain":
		return runVerifyChainCmd(args[2:], stdout, stderr)
	case "rebuild-projections":
		return runRebuildProjectionsCmd(args[2:], stdout, stderr)
	case "export-events":
		return runExportEventsCmd(args[2:], stdout, stderr)
	case "create-genesis-editor":
		return runCreateGenesisEditorCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "accountabilityme — operator CLI for the ledger core")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: accountabilityme <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  verify-chain          Run verify_chain and print IntegrityStatus as JSON")
	fmt.Fprintln(w, "  rebuild-projections   Truncate and replay all projections from the event store")
	fmt.Fprintln(w, "  export-events         Export a claim's bundle (--claim, --format json|markdown)")
	fmt.Fprintln(w, "  create-genesis-editor Register the first editor using the system key")
	fmt.Fprintln(w, "  help                  Show this help")
}
