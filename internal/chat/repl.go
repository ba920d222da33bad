package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
)

// clearScreen is the ANSI sequence that clears the terminal and homes the cursor.
const clearScreen = "\033[H\033[2J"

// REPL is the line-oriented chat loop.
type REPL struct {
	Asker     Asker
	StoreName string
	In        io.Reader
	Out       io.Writer
}

// Run reads questions until quit, end of input or ctx cancellation. Failed
// questions are reported inline and the loop continues.
//
// Run returns on cancellation without waiting for In. A reader goroutine that
// is blocked in a read exits once In yields a line, EOF or an error; close In
// if it must not outlive Run.
func (r *REPL) Run(ctx context.Context) error {
	r.banner()

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.In)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()

	for {
		fmt.Fprint(r.Out, "\nYour question: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.Out, "\nGoodbye!")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.Out, "\nGoodbye!")
				return nil
			}
			line = l
		}

		cmd, question := ParseCommand(line)
		switch cmd {
		case CommandEmpty:
			continue
		case CommandQuit:
			fmt.Fprintln(r.Out, "\nGoodbye!")
			return nil
		case CommandClear:
			fmt.Fprint(r.Out, clearScreen)
			continue
		}

		fmt.Fprintln(r.Out, "\nSearching guides...")
		ans, err := r.Asker.Ask(ctx, r.StoreName, question)
		if err != nil {
			slog.Debug("question failed", "error", err)
			fmt.Fprintf(r.Out, "\nError: %v\n", err)
			continue
		}
		WriteAnswer(r.Out, ans)
	}
}

func (r *REPL) banner() {
	fmt.Fprintf(r.Out, "\n%s\n", heavyRule)
	fmt.Fprintln(r.Out, "GSPP User Guides - Interactive Query Mode")
	fmt.Fprintln(r.Out, heavyRule)
	fmt.Fprintln(r.Out, "Ask questions about the GSPP Job Planning Application or Sweet Editor.")
	fmt.Fprintln(r.Out, "Type 'quit' or 'exit' to end the session.")
	fmt.Fprintln(r.Out, "Type 'clear' to clear the screen.")
	fmt.Fprintln(r.Out, heavyRule)
}
