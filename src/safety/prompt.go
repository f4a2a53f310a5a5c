package safety

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Options carries the global safety flags.
type Options struct {
	DryRun bool
	Yes    bool
}

// ErrNotInteractive is returned when a confirmation is needed but stdin is
// a file or pipe rather than a terminal.
var ErrNotInteractive = errors.New("confirmation required but stdin is not a terminal (pass --yes)")

// Confirm asks before a destructive action and reports whether to go ahead.
// Dry-run always declines and --yes always accepts, both without prompting.
// Only "y" and "yes" accept; anything else, including EOF, declines.
func Confirm(opts Options, in io.Reader, out io.Writer, question string) (bool, error) {
	if opts.DryRun {
		return false, nil
	}
	if opts.Yes {
		return true, nil
	}
	if f, ok := in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false, ErrNotInteractive
	}
	if out != nil {
		fmt.Fprintf(out, "%s [y/N]: ", strings.TrimSpace(question))
	}
	if in == nil {
		return false, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
