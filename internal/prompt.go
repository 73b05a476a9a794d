package internal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-isatty"
)

// ErrNotATerminal is returned when confirmation is required but stdin is not
// interactive. Callers pass --yes to run unattended.
var ErrNotATerminal = errors.New("stdin is not a terminal; pass --yes to confirm non-interactively")

// terminalFd is satisfied by *os.File; abstracted so tests can substitute
// non-TTY readers.
type terminalFd interface {
	Fd() uintptr
}

// Confirm prints the operation summary and reads a y/n answer from in.
// assumeYes bypasses the prompt. When in is not a terminal and assumeYes is
// false, Confirm refuses rather than hanging on a pipe. Any answer not
// starting with "y" declines.
func Confirm(summary string, assumeYes bool, in io.Reader, out io.Writer) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if f, ok := in.(terminalFd); ok {
		if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
			return false, ErrNotATerminal
		}
	}

	fmt.Fprintf(out, "%s; Okay? (y/n): ", summary)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "y"), nil
}
