package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML defaults file. Every key is optional; flags given on the
// command line take precedence.
//
//	output_dir: /backups
//	target: pi1
//	rotation_count: 4
//	compression: xz
type File struct {
	OutputDir     string `yaml:"output_dir"`
	Drive         string `yaml:"drive"`
	Group         string `yaml:"group"`
	User          string `yaml:"user"`
	Target        string `yaml:"target"`
	ImageName     string `yaml:"image_name"`
	RotationCount *int   `yaml:"rotation_count"`
	TmpDir        string `yaml:"tmp_dir"`
	Quiet         *bool  `yaml:"quiet"`
	Compression   string `yaml:"compression"`
	Sudo          *bool  `yaml:"sudo"`
	Offsite       string `yaml:"offsite"`
}

// LoadFile reads and decodes a YAML defaults file. Unknown keys are errors.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("config file: %w", err)
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("config file %s: %w", path, err)
	}
	if f.RotationCount != nil && *f.RotationCount < 1 {
		return File{}, fmt.Errorf("config file %s: rotation_count must be >= 1, got %d", path, *f.RotationCount)
	}
	if _, err := ParseCompression(f.Compression); err != nil {
		return File{}, fmt.Errorf("config file %s: %w", path, err)
	}
	return f, nil
}
