package rotation

import (
	"fmt"
	"strconv"
	"strings"
)

// KnownExts are compression suffixes kept after the slot index, so that
// "pi1.img.gz" rotates as "pi1.img.0.gz", "pi1.img.1.gz", ...
var KnownExts = []string{".gz", ".xz"}

// Name is a backup file name split into the rotated base and a trailing
// compression extension.
type Name struct {
	Base string
	Ext  string
}

// ParseName splits a file name (no directory) into base and extension.
func ParseName(file string) Name {
	for _, ext := range KnownExts {
		if strings.HasSuffix(file, ext) && len(file) > len(ext) {
			return Name{Base: strings.TrimSuffix(file, ext), Ext: ext}
		}
	}
	return Name{Base: file}
}

// Slot returns the file name of rotation slot i.
func (n Name) Slot(i int) string {
	return fmt.Sprintf("%s.%d%s", n.Base, i, n.Ext)
}

// Index reports whether file is a slot of n and, if so, its index.
func (n Name) Index(file string) (int, bool) {
	prefix := n.Base + "."
	if !strings.HasPrefix(file, prefix) || !strings.HasSuffix(file, n.Ext) {
		return 0, false
	}
	mid := strings.TrimSuffix(strings.TrimPrefix(file, prefix), n.Ext)
	if mid == "" {
		return 0, false
	}
	for _, r := range mid {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(mid)
	if err != nil {
		return 0, false
	}
	// "pi1.img.01" is not slot 1.
	if strconv.Itoa(i) != mid {
		return 0, false
	}
	return i, true
}

func (n Name) String() string { return n.Base + n.Ext }
