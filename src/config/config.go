// Package config builds the immutable configuration of a backup run from
// command-line flags and an optional YAML defaults file.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"pi-backup/src/target"
)

// Defaults for every option except the output directory.
const (
	DefaultDrive         = "/dev/mmcblk0"
	DefaultGroup         = "pi"
	DefaultUser          = "pi"
	DefaultRotationCount = 8
	DefaultTmpDir        = "/tmp"
	ImageSuffix          = ".img"
)

// Compression selects the shrink tool's compression mode.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionXZ   Compression = "xz"
)

// ParseCompression accepts none|gzip|xz (and the empty string as none).
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "gzip", "gz":
		return CompressionGzip, nil
	case "xz":
		return CompressionXZ, nil
	}
	return CompressionNone, fmt.Errorf("unknown compression %q (want none, gzip or xz)", s)
}

// Ext is the suffix pishrink appends to the image when compressing.
func (c Compression) Ext() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionXZ:
		return ".xz"
	}
	return ""
}

// ShrinkFlag is the pishrink.sh option selecting this compression.
func (c Compression) ShrinkFlag() string {
	switch c {
	case CompressionGzip:
		return "-z"
	case CompressionXZ:
		return "-Z"
	}
	return ""
}

func (c Compression) String() string {
	if c == "" {
		return string(CompressionNone)
	}
	return string(c)
}

// Config is the resolved, read-only configuration of a run.
type Config struct {
	OutputDir     string
	Drive         string
	Group         string
	User          string
	Target        target.Target
	ImageName     string
	RotationCount int
	TmpDir        string
	Quiet         bool
	Compression   Compression
	// Sudo prefixes privileged commands (dd read, fdisk, chown, pishrink).
	Sudo bool
	// Offsite names an upload destination for the newest slot; empty disables it.
	Offsite string
}

// ValidationError reports an invalid or missing option.
type ValidationError struct {
	Flag   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("--%s %s", e.Flag, e.Reason)
}

// Validate checks invariants the rest of the program relies on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.OutputDir) == "" {
		return &ValidationError{Flag: "output-dir", Reason: "is required"}
	}
	if c.RotationCount < 1 {
		return &ValidationError{Flag: "rotation-count", Reason: fmt.Sprintf("must be >= 1, got %d", c.RotationCount)}
	}
	if strings.TrimSpace(c.Drive) == "" {
		return &ValidationError{Flag: "drive", Reason: "must not be empty"}
	}
	if strings.TrimSpace(c.TmpDir) == "" {
		return &ValidationError{Flag: "tmp-dir", Reason: "must not be empty"}
	}
	if c.ImageName == "" || strings.ContainsRune(c.ImageName, '/') {
		return &ValidationError{Flag: "image-name", Reason: fmt.Sprintf("must be a plain file name, got %q", c.ImageName)}
	}
	if c.User == "" || c.Group == "" {
		return &ValidationError{Flag: "user", Reason: "and --group must not be empty"}
	}
	switch c.Offsite {
	case "", OffsiteAzure:
	default:
		return &ValidationError{Flag: "offsite", Reason: fmt.Sprintf("unsupported destination %q", c.Offsite)}
	}
	return nil
}

// OffsiteAzure uploads the newest slot to Azure Blob Storage.
const OffsiteAzure = "azure"

// ImagePath is where the dump step writes the raw image.
func (c Config) ImagePath() string {
	return filepath.Join(c.TmpDir, c.ImageName)
}

// ShrunkPath is the image path after the shrink step, which appends the
// compression extension when compressing.
func (c Config) ShrunkPath() string {
	return c.ImagePath() + c.Compression.Ext()
}

// DestDir is the per-host directory holding the rotation slots.
func (c Config) DestDir() string {
	return filepath.Join(c.OutputDir, c.Target.Host)
}

// DefaultImageName derives the image name from a target host.
func DefaultImageName(host string) string {
	return host + ImageSuffix
}

// NormalizeImageName appends the .img suffix to explicit names lacking it.
func NormalizeImageName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasSuffix(name, ImageSuffix) {
		return name
	}
	return name + ImageSuffix
}
