package tools

import (
	"fmt"
	"os/exec"
	"strings"
)

// Names of the external programs a backup run depends on.
const (
	PiShrink = "pishrink.sh"
	DD       = "dd"
	Chown    = "chown"
	SSH      = "ssh"
	Sudo     = "sudo"
	Fdisk    = "fdisk"
)

// Info describes a located binary.
type Info struct {
	Name string
	Path string
}

// MissingToolError reports binaries that could not be resolved on PATH.
type MissingToolError struct {
	Names []string
}

func (e *MissingToolError) Error() string {
	return fmt.Sprintf("required tool(s) not found on PATH: %s", strings.Join(e.Names, ", "))
}

// LookPathFunc resolves a program name to a path.
type LookPathFunc func(string) (string, error)

// Locator resolves tools through a LookPathFunc; the zero value uses
// exec.LookPath.
type Locator struct {
	LookPath LookPathFunc
}

// Detect locates a single binary.
func (l Locator) Detect(name string) (Info, error) {
	lp := l.LookPath
	if lp == nil {
		lp = exec.LookPath
	}
	p, err := lp(name)
	if err != nil {
		return Info{}, &MissingToolError{Names: []string{name}}
	}
	return Info{Name: name, Path: p}, nil
}

// Require locates every name and reports all missing ones at once.
func (l Locator) Require(names ...string) ([]Info, error) {
	var found []Info
	var missing []string
	seen := map[string]bool{}
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		info, err := l.Detect(n)
		if err != nil {
			missing = append(missing, n)
			continue
		}
		found = append(found, info)
	}
	if len(missing) > 0 {
		return found, &MissingToolError{Names: missing}
	}
	return found, nil
}
