package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/tedy97123/accountabiltyme/pkg/errs"
)

// runVerifyChainCmd implements `accountabilityme verify-chain` (§4.13).
//
// Exit codes:
//
//	0 = chain valid
//	1 = chain corrupted
//	2 = runtime error
func runVerifyChainCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify-chain", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	a, err := buildApp(ctx, newLogger())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	status, err := a.service.VerifyIntegrity(ctx)
	data, _ := json.MarshalIndent(status, "", "  ")
	fmt.Fprintln(stdout, string(data))

	if err != nil {
		if errors.Is(err, errs.ErrLedgerCorruption) {
			return 1
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}
