package config

import (
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"pi-backup/src/target"
)

// Flags holds raw option values bound to a pflag.FlagSet.
type Flags struct {
	OutputDir     string
	Drive         string
	Group         string
	User          string
	Target        string
	ImageName     string
	RotationCount int
	TmpDir        string
	Quiet         bool
	NoSudo        bool
	Offsite       string
	ConfigFile    string
	Compression   Compression
}

// Bind registers the backup options on fs.
func (f *Flags) Bind(fs *pflag.FlagSet) {
	f.Compression = CompressionNone
	fs.StringVarP(&f.OutputDir, "output-dir", "o", "", "Directory receiving <target>/<image>.<n> slots (required)")
	fs.StringVarP(&f.Drive, "drive", "d", DefaultDrive, "Block device to image")
	fs.StringVarP(&f.Group, "group", "g", DefaultGroup, "Group owning the image file")
	fs.StringVarP(&f.User, "user", "u", DefaultUser, "User owning the image file")
	fs.StringVarP(&f.Target, "target", "T", "", "Host to back up: host, user@host or host:port (default: local hostname)")
	fs.StringVarP(&f.ImageName, "image-name", "n", "", "Image base name (default: <target>.img)")
	fs.IntVarP(&f.RotationCount, "rotation-count", "r", DefaultRotationCount, "Number of images to keep")
	fs.StringVarP(&f.TmpDir, "tmp-dir", "t", DefaultTmpDir, "Scratch directory for the image in progress")
	fs.BoolVarP(&f.Quiet, "quiet", "q", false, "Suppress progress output and tool output")
	fs.BoolVar(&f.NoSudo, "no-sudo", false, "Do not prefix privileged commands with sudo")
	fs.StringVar(&f.Offsite, "offsite", "", "Also upload the newest image: azure")
	fs.StringVar(&f.ConfigFile, "config", "", "YAML file with default option values")
	fs.VarPF(&compressionFlag{dst: &f.Compression, value: CompressionGzip}, "gzip", "z", "Compress the image with gzip").NoOptDefVal = "true"
	fs.VarPF(&compressionFlag{dst: &f.Compression, value: CompressionXZ}, "xz", "Z", "Compress the image with xz").NoOptDefVal = "true"
}

// Build resolves the bound values into a Config. Values from the defaults
// file apply only to flags that were not given on the command line.
// localHost may be fully qualified; the default target uses its first label.
func (f *Flags) Build(fs *pflag.FlagSet, localHost string) (Config, error) {
	var file File
	if f.ConfigFile != "" {
		loaded, err := LoadFile(f.ConfigFile)
		if err != nil {
			return Config{}, err
		}
		file = loaded
	}
	pick := func(name, flagVal, fileVal string) string {
		if !fs.Changed(name) && fileVal != "" {
			return fileVal
		}
		return flagVal
	}

	cfg := Config{
		OutputDir:     pick("output-dir", f.OutputDir, file.OutputDir),
		Drive:         pick("drive", f.Drive, file.Drive),
		Group:         pick("group", f.Group, file.Group),
		User:          pick("user", f.User, file.User),
		TmpDir:        pick("tmp-dir", f.TmpDir, file.TmpDir),
		Offsite:       pick("offsite", f.Offsite, file.Offsite),
		RotationCount: f.RotationCount,
		Quiet:         f.Quiet,
		Sudo:          !f.NoSudo,
		Compression:   f.Compression,
	}
	if !fs.Changed("rotation-count") && file.RotationCount != nil {
		cfg.RotationCount = *file.RotationCount
	}
	if !fs.Changed("quiet") && file.Quiet != nil {
		cfg.Quiet = *file.Quiet
	}
	if !fs.Changed("no-sudo") && file.Sudo != nil {
		cfg.Sudo = *file.Sudo
	}
	if !fs.Changed("gzip") && !fs.Changed("xz") && file.Compression != "" {
		c, err := ParseCompression(file.Compression)
		if err != nil {
			return Config{}, err
		}
		cfg.Compression = c
	}

	rawTarget := pick("target", f.Target, file.Target)
	if rawTarget == "" {
		short, _, _ := strings.Cut(localHost, ".")
		cfg.Target = target.Local(short)
	} else {
		t, err := target.Parse(rawTarget, localHost)
		if err != nil {
			return Config{}, &ValidationError{Flag: "target", Reason: err.Error()}
		}
		cfg.Target = t
	}

	// An explicit name wins; otherwise the name follows the target host,
	// wherever --target appears on the command line.
	if name := pick("image-name", f.ImageName, file.ImageName); name != "" {
		cfg.ImageName = NormalizeImageName(name)
	} else {
		cfg.ImageName = DefaultImageName(cfg.Target.Host)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// compressionFlag is a boolean-looking flag writing a shared Compression, so
// that of -z and -Z the last one given wins.
type compressionFlag struct {
	dst   *Compression
	value Compression
}

func (c *compressionFlag) String() string {
	if c.dst == nil {
		return "false"
	}
	return strconv.FormatBool(*c.dst == c.value)
}

func (c *compressionFlag) Set(s string) error {
	on, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	switch {
	case on:
		*c.dst = c.value
	case *c.dst == c.value:
		*c.dst = CompressionNone
	}
	return nil
}

func (c *compressionFlag) Type() string { return "bool" }
