package bundle

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders a non-authoritative, human-readable report for a
// bundle (§6 egress artifacts). It is never used for verification — only
// Verify is authoritative — so it is built with strings.Builder rather
// than reaching for a templating or Markdown-generation library: nothing
// in the example corpus renders Markdown, and this is pure string
// formatting with no parsing or escaping concerns beyond what fmt already
// handles.
func RenderMarkdown(b *Bundle) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Claim %s\n\n", b.Claim.ClaimID)
	fmt.Fprintf(&sb, "**Status:** %s  \n", b.Claim.Status)
	fmt.Fprintf(&sb, "**Event count:** %d  \n", b.Claim.EventCount)
	fmt.Fprintf(&sb, "**Exported:** %s  \n", b.Meta.ExportedAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&sb, "**Chain valid at export:** %t\n\n", b.Meta.ChainValidAtExport)

	sb.WriteString("## Timeline\n\n")
	for _, ev := range b.Events {
		fmt.Fprintf(&sb, "### %d. %s\n\n", ev.SequenceNumber, ev.EventType)
		fmt.Fprintf(&sb, "- Event ID: `%s`\n", ev.EventID)
		fmt.Fprintf(&sb, "- Event hash: `%s`\n", ev.EventHash)
		editorName := ev.CreatedBy
		if info, ok := b.Editors[ev.CreatedBy]; ok && info.Username != "" {
			editorName = info.Username
		}
		fmt.Fprintf(&sb, "- Recorded by: %s\n", editorName)
		fmt.Fprintf(&sb, "- Recorded at: %s\n\n", ev.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}

	sb.WriteString("## Editors referenced\n\n")
	for id, info := range b.Editors {
		fmt.Fprintf(&sb, "- `%s` — %s\n", id, info.Username)
	}

	sb.WriteString("\n---\n")
	sb.WriteString("This report is a non-authoritative rendering. Verify the accompanying JSON bundle's signatures and hash chain for a cryptographic guarantee.\n")

	return sb.String()
}
