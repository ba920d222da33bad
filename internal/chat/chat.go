// Package chat holds the terminal chat pieces shared by the plain REPL and the
// Bubble Tea interface: command parsing and answer formatting.
package chat

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jharjadi/guides-search/internal/grounding"
	"github.com/jharjadi/guides-search/internal/service"
)

// SnippetRunes is how much cited text the terminal shows per citation.
const SnippetRunes = 200

// Command is what one line of user input asks for.
type Command int

const (
	CommandAsk Command = iota
	CommandEmpty
	CommandQuit
	CommandClear
)

// Asker answers one question against a store.
type Asker interface {
	Ask(ctx context.Context, storeName, question string) (*service.Answer, error)
}

// ParseCommand classifies a line of input. The returned question is trimmed
// and only meaningful for CommandAsk.
func ParseCommand(line string) (Command, string) {
	q := strings.TrimSpace(line)
	switch strings.ToLower(q) {
	case "":
		return CommandEmpty, ""
	case "quit", "exit", "q":
		return CommandQuit, ""
	case "clear":
		return CommandClear, ""
	}
	return CommandAsk, q
}

// Snippet shortens text to n runes, marking the cut with "...".
func Snippet(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	r := []rune(text)
	return string(r[:n]) + "..."
}

var (
	heavyRule = strings.Repeat("=", 80)
	lightRule = strings.Repeat("-", 80)
)

// WriteAnswer prints an answer followed by its citations.
func WriteAnswer(w io.Writer, ans *service.Answer) {
	fmt.Fprintf(w, "\n%s\nANSWER:\n%s\n%s\n", heavyRule, heavyRule, ans.Text)
	if len(ans.Citations) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\nCITATIONS:\n%s\n", lightRule, lightRule)
	WriteCitations(w, ans.Citations)
}

// WriteCitations prints numbered citations with a short text snippet each.
func WriteCitations(w io.Writer, citations []grounding.Citation) {
	for i, c := range citations {
		fmt.Fprintf(w, "\n[%d] Source: %s\n", i+1, c.Title)
		if c.SourceText != "" {
			fmt.Fprintf(w, "    Text: %s\n", Snippet(c.SourceText, SnippetRunes))
		}
	}
}
