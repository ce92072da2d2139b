package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/tedy97123/accountabiltyme/pkg/domain"
	"github.com/tedy97123/accountabiltyme/pkg/ledgersvc"
	"github.com/tedy97123/accountabiltyme/pkg/signer"
)

// runCreateGenesisEditorCmd implements `accountabilityme create-genesis-editor`
// (§4.13): generates an Ed25519 keypair, self-generates the new editor's
// editor_id (the payload always carries a caller-supplied id — see
// pkg/domain's EDITOR_REGISTERED validation), and submits an
// EDITOR_REGISTERED event signed by the system key. The private key is
// printed exactly once.
//
// Exit codes:
//
//	0 = editor created
//	2 = runtime or usage error
func runCreateGenesisEditorCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("create-genesis-editor", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var username, displayName, role string
	cmd.StringVar(&username, "username", "", "Username for the genesis editor (REQUIRED)")
	cmd.StringVar(&displayName, "display-name", "", "Display name for the genesis editor")
	cmd.StringVar(&role, "role", "admin", "Role to assign the genesis editor")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if username == "" {
		fmt.Fprintln(stderr, "Error: --username is required")
		return 2
	}
	if displayName == "" {
		displayName = username
	}

	ctx := context.Background()
	a, err := buildApp(ctx, newLogger())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	kp, err := signer.GenerateKeyPair()
	if err != nil {
		fmt.Fprintf(stderr, "Error: generate keypair: %v\n", err)
		return 2
	}
	editorID := uuid.NewString()

	result, err := a.service.Submit(ctx, ledgersvc.Command{
		EventType: domain.EventEditorRegistered,
		EditorID:  editorID,
		Signer:    a.system.Signer,
		Payload: map[string]interface{}{
			"editor_id":    editorID,
			"username":     username,
			"display_name": displayName,
			"public_key":   kp.PublicKeyB64,
			"role":         role,
		},
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: register genesis editor: %v\n", err)
		return 2
	}

	fmt.Fprintf(stdout, "Genesis editor created.\n")
	fmt.Fprintf(stdout, "  editor_id:  %s\n", editorID)
	fmt.Fprintf(stdout, "  event_id:   %s\n", result.EventID)
	fmt.Fprintf(stdout, "  public_key: %s\n", kp.PublicKeyB64)
	fmt.Fprintln(stdout, "")
	fmt.Fprintln(stdout, "PRIVATE KEY (store this now — it will not be shown again):")
	fmt.Fprintf(stdout, "  %s\n", kp.PrivateKeyB64)
	return 0
}
