package credentials

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// TerminalPrompt reads a secret from stdin without echo.
// It returns nil when stdin is not a terminal, as in a scheduled run.
func TerminalPrompt(out io.Writer) PromptFunc {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("error reading from stdin: %w", err)
		}
		return string(b), nil
	}
}
