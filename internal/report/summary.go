package report

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"gw-audit/internal/domain"
)

// Count formats n with thousands separators, e.g. 1250 as "1,250".
func Count(n int) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

// RenderText renders a notification as a plain-text email body.
func RenderText(n domain.Notification) string {
	var b strings.Builder
	b.WriteString(n.Subject)
	b.WriteString("\n\n")

	width := 0
	for _, f := range n.Summary {
		if len(f.Name) > width {
			width = len(f.Name)
		}
	}
	for _, f := range n.Summary {
		b.WriteString(f.Name)
		b.WriteString(":")
		b.WriteString(strings.Repeat(" ", width-len(f.Name)+1))
		b.WriteString(f.Value)
		b.WriteString("\n")
	}

	if len(n.Links) > 0 {
		b.WriteString("\nReports:\n")
		for _, l := range n.Links {
			b.WriteString("  ")
			b.WriteString(l)
			b.WriteString("\n")
		}
	}
	return b.String()
}
