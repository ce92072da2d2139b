package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/tedy97123/accountabiltyme/pkg/bundle"
)

// runExportEventsCmd implements `accountabilityme export-events` (§4.13,
// §4.8): exports one claim's bundle as JSON or the non-authoritative
// Markdown report.
//
// Exit codes:
//
//	0 = exported
//	2 = runtime or usage error
func runExportEventsCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("export-events", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var claimID, format string
	cmd.StringVar(&claimID, "claim", "", "Claim ID to export (REQUIRED)")
	cmd.StringVar(&format, "format", "json", "Output format: json|markdown")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if claimID == "" {
		fmt.Fprintln(stderr, "Error: --claim is required")
		return 2
	}

	ctx := context.Background()
	a, err := buildApp(ctx, newLogger())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	b, err := a.exporter.Export(ctx, claimID)
	if err != nil {
		fmt.Fprintf(stderr, "Error: export claim %s: %v\n", claimID, err)
		return 2
	}

	switch format {
	case "markdown":
		fmt.Fprintln(stdout, bundle.RenderMarkdown(b))
	case "json", "":
		data, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "Error: encode bundle: %v\n", err)
			return 2
		}
		fmt.Fprintln(stdout, string(data))
	default:
		fmt.Fprintf(stderr, "Error: unknown --format %q (want json or markdown)\n", format)
		return 2
	}

	return 0
}
