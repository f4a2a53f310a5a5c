package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"pi-backup/src/config"
)

func parse(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("pi-backup", pflag.ContinueOnError)
	fs.SetOutput(&strings.Builder{})
	var f config.Flags
	f.Bind(fs)
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	return f.Build(fs, "backupbox")
}

func mustParse(t *testing.T, args ...string) config.Config {
	t.Helper()
	cfg, err := parse(t, args...)
	if err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return cfg
}

func TestBuild_Defaults(t *testing.T) {
	cfg := mustParse(t, "-o", "/backups")
	if cfg.Drive != "/dev/mmcblk0" || cfg.Group != "pi" || cfg.User != "pi" {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if cfg.RotationCount != 8 || cfg.TmpDir != "/tmp" || cfg.Quiet || !cfg.Sudo {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if cfg.Compression != config.CompressionNone {
		t.Fatalf("compression = %v, want none", cfg.Compression)
	}
	if !cfg.Target.Local || cfg.Target.Host != "backupbox" {
		t.Fatalf("target = %#v, want local backupbox", cfg.Target)
	}
	if cfg.ImageName != "backupbox.img" {
		t.Fatalf("image name = %q", cfg.ImageName)
	}
	if cfg.DestDir() != "/backups/backupbox" || cfg.ImagePath() != "/tmp/backupbox.img" {
		t.Fatalf("paths: dest=%s image=%s", cfg.DestDir(), cfg.ImagePath())
	}
}

func TestBuild_MissingOutputDir(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"-T", "pi1"},
		{"-z", "-r", "3", "-q"},
	} {
		_, err := parse(t, args...)
		var ve *config.ValidationError
		if !errors.As(err, &ve) || ve.Flag != "output-dir" {
			t.Fatalf("args %v: expected output-dir validation error, got %v", args, err)
		}
	}
}

func TestBuild_IsDeterministic(t *testing.T) {
	args := []string{"-o", "/backups", "-T", "pi1", "-Z", "-r", "3", "-q", "-g", "staff"}
	a := mustParse(t, args...)
	b := mustParse(t, args...)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("parsing is not idempotent:\n%#v\n%#v", a, b)
	}
}

func TestBuild_CompressionLastWins(t *testing.T) {
	cases := []struct {
		args []string
		want config.Compression
		ext  string
	}{
		{[]string{"-o", "/b", "--xz", "--gzip"}, config.CompressionGzip, ".gz"},
		{[]string{"-o", "/b", "--gzip", "--xz"}, config.CompressionXZ, ".xz"},
		{[]string{"-o", "/b", "-zZ"}, config.CompressionXZ, ".xz"},
		{[]string{"-o", "/b", "-Z", "-z"}, config.CompressionGzip, ".gz"},
		{[]string{"-o", "/b", "-z", "--gzip=false"}, config.CompressionNone, ""},
	}
	for _, c := range cases {
		cfg := mustParse(t, c.args...)
		if cfg.Compression != c.want {
			t.Fatalf("%v: compression = %v, want %v", c.args, cfg.Compression, c.want)
		}
		if got := cfg.ShrunkPath(); got != cfg.ImagePath()+c.ext {
			t.Fatalf("%v: shrunk path = %q", c.args, got)
		}
	}
}

func TestBuild_TargetDrivesImageName(t *testing.T) {
	cfg := mustParse(t, "-o", "/backups", "--target", "foo")
	if cfg.ImageName != "foo.img" {
		t.Fatalf("image name = %q, want foo.img", cfg.ImageName)
	}
	if cfg.Target.Local {
		t.Fatalf("foo should be remote")
	}

	cfg = mustParse(t, "-o", "/backups", "--image-name", "bar", "--target", "foo")
	if cfg.ImageName != "bar.img" {
		t.Fatalf("image name = %q, want bar.img", cfg.ImageName)
	}
	cfg = mustParse(t, "-o", "/backups", "--target", "foo", "-n", "bar.img")
	if cfg.ImageName != "bar.img" {
		t.Fatalf("image name = %q, want bar.img", cfg.ImageName)
	}
	if cfg.DestDir() != "/backups/foo" {
		t.Fatalf("dest dir = %q", cfg.DestDir())
	}
}

func TestBuild_MissingValueFailsLoudly(t *testing.T) {
	for _, args := range [][]string{
		{"-o"},
		{"-o", "/b", "--target"},
		{"-o", "/b", "-r"},
	} {
		if _, err := parse(t, args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestBuild_RejectsBadValues(t *testing.T) {
	for _, args := range [][]string{
		{"-o", "/b", "-r", "0"},
		{"-o", "/b", "-r", "many"},
		{"-o", "/b", "-n", "a/b"},
		{"-o", "/b", "-T", "pi1:notaport"},
		{"-o", "/b", "--offsite", "s3"},
		{"-o", "/b", "--bogus"},
	} {
		if _, err := parse(t, args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestBuild_NoSudo(t *testing.T) {
	if cfg := mustParse(t, "-o", "/b", "--no-sudo"); cfg.Sudo {
		t.Fatalf("expected sudo disabled")
	}
}

func TestBuild_ConfigFileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pi-backup.yaml")
	data := "output_dir: /srv/backups\ntarget: pi9\nrotation_count: 4\ncompression: xz\nquiet: true\nsudo: false\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := mustParse(t, "--config", path)
	if cfg.OutputDir != "/srv/backups" || cfg.Target.Host != "pi9" || cfg.RotationCount != 4 {
		t.Fatalf("file defaults not applied: %#v", cfg)
	}
	if cfg.Compression != config.CompressionXZ || !cfg.Quiet || cfg.Sudo {
		t.Fatalf("file defaults not applied: %#v", cfg)
	}
	if cfg.ImageName != "pi9.img" {
		t.Fatalf("image name = %q", cfg.ImageName)
	}

	cfg = mustParse(t, "--config", path, "-r", "2", "-z", "-T", "pi3")
	if cfg.RotationCount != 2 || cfg.Compression != config.CompressionGzip || cfg.Target.Host != "pi3" {
		t.Fatalf("flags must override file: %#v", cfg)
	}
	if cfg.ImageName != "pi3.img" {
		t.Fatalf("image name = %q", cfg.ImageName)
	}
}

func TestLoadFile_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("output_directory: /x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadFile(path); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestCompression(t *testing.T) {
	cases := []struct {
		c          config.Compression
		ext, shrink string
	}{
		{config.CompressionNone, "", ""},
		{config.CompressionGzip, ".gz", "-z"},
		{config.CompressionXZ, ".xz", "-Z"},
	}
	for _, c := range cases {
		if c.c.Ext() != c.ext || c.c.ShrinkFlag() != c.shrink {
			t.Fatalf("%v: ext=%q flag=%q", c.c, c.c.Ext(), c.c.ShrinkFlag())
		}
	}
	if _, err := config.ParseCompression("zstd"); err == nil {
		t.Fatalf("expected error for zstd")
	}
}

func TestLoadFile_RejectsNonPositiveRotationCount(t *testing.T) {
	for _, v := range []string{"0", "-2"} {
		path := filepath.Join(t.TempDir(), "pi-backup.yaml")
		if err := os.WriteFile(path, []byte("rotation_count: "+v+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := config.LoadFile(path); err == nil || !strings.Contains(err.Error(), "rotation_count must be >= 1") {
			t.Fatalf("rotation_count %s: expected error, got %v", v, err)
		}
		if _, err := parse(t, "-o", "/b", "--config", path); err == nil {
			t.Fatalf("rotation_count %s: Build should fail", v)
		}
	}
}

func TestBuild_FullyQualifiedLocalHost(t *testing.T) {
	fs := pflag.NewFlagSet("pi-backup", pflag.ContinueOnError)
	var f config.Flags
	f.Bind(fs)
	if err := fs.Parse([]string{"-o", "/b"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := f.Build(fs, "pi1.lan")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Target.Local || cfg.Target.Host != "pi1" || cfg.ImageName != "pi1.img" {
		t.Fatalf("default target = %#v, image %q", cfg.Target, cfg.ImageName)
	}

	for _, tc := range []struct {
		raw   string
		local bool
	}{
		{"pi1", true},
		{"pi1.lan", true},
		{"pi1.otherdomain", false},
	} {
		fs := pflag.NewFlagSet("pi-backup", pflag.ContinueOnError)
		var f config.Flags
		f.Bind(fs)
		if err := fs.Parse([]string{"-o", "/b", "-T", tc.raw}); err != nil {
			t.Fatal(err)
		}
		cfg, err := f.Build(fs, "pi1.lan")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Target.Local != tc.local {
			t.Fatalf("-T %s: Local = %v, want %v", tc.raw, cfg.Target.Local, tc.local)
		}
	}
}
