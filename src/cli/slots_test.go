package cli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pi-backup/src/backend"
	"pi-backup/src/cli"
)

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mustExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}

func mustNotExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be gone; stat err=%v", path, err)
	}
}

func TestRotateCmd_ShiftsSlots(t *testing.T) {
	dest := t.TempDir()
	src := filepath.Join(t.TempDir(), "pi1.img.gz")
	mustWrite(t, src, "new")
	mustWrite(t, filepath.Join(dest, "pi1.img.0.gz"), "old0")
	mustWrite(t, filepath.Join(dest, "pi1.img.1.gz"), "old1")

	code, out, stderr := run(t, "rotate", src, dest, "-r", "2")
	if code != 0 {
		t.Fatalf("rotate failed: %s", stderr)
	}
	b, err := os.ReadFile(filepath.Join(dest, "pi1.img.0.gz"))
	if err != nil || string(b) != "new" {
		t.Fatalf("slot 0 = %q (%v)", b, err)
	}
	b, err = os.ReadFile(filepath.Join(dest, "pi1.img.1.gz"))
	if err != nil || string(b) != "old0" {
		t.Fatalf("slot 1 = %q (%v)", b, err)
	}
	mustNotExist(t, filepath.Join(dest, "pi1.img.2.gz"))
	mustNotExist(t, src)
	if !strings.Contains(out, "Rotated") {
		t.Fatalf("stdout = %q", out)
	}
}

func TestRotateCmd_RequiresTwoArgs(t *testing.T) {
	code, _, stderr := run(t, "rotate", "only-one")
	if code != 1 || !strings.Contains(stderr, "accepts 2 arg(s)") || !strings.Contains(stderr, "Usage:") {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
}

func TestRotateCmd_DryRunLeavesFiles(t *testing.T) {
	dest := t.TempDir()
	src := filepath.Join(t.TempDir(), "pi1.img")
	mustWrite(t, src, "new")

	code, out, _ := run(t, "--dry-run", "rotate", src, dest)
	if code != 0 || !strings.Contains(out, "[dry-run]") {
		t.Fatalf("code=%d out=%s", code, out)
	}
	mustExist(t, src)
	mustNotExist(t, filepath.Join(dest, "pi1.img.0"))
}

func seedBackups(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, p := range []string{
		"pi1/pi1.img.0", "pi1/pi1.img.1", "pi1/pi1.img.2", "pi1/pi1.img.3",
		"pi1/notes.txt",
		"pi2/garage.img.0.xz",
	} {
		mustWrite(t, filepath.Join(root, p), p)
	}
	return root
}

func TestListCmd_Table(t *testing.T) {
	root := seedBackups(t)
	code, out, stderr := run(t, "list", "-o", root)
	if code != 0 {
		t.Fatalf("list failed: %s", stderr)
	}
	if !strings.Contains(out, "HOST") || !strings.Contains(out, "SLOT") {
		t.Fatalf("missing header in table output: %q", out)
	}
	for _, want := range []string{"pi1.img.3", "garage.img.0.xz"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "notes.txt") {
		t.Fatalf("non-slot file listed:\n%s", out)
	}
}

func TestListCmd_JSONFiltered(t *testing.T) {
	root := seedBackups(t)
	var out, errBuf bytes.Buffer
	cmd := cli.NewRootCmd(&out, &errBuf)
	cmd.SetArgs([]string{"list", "-o", root, "-T", "pi2", "-n", "garage", "--format", "json"})
	if _, err := cmd.ExecuteC(); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var entries []backend.Entry
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out.String())
	}
	if len(entries) != 1 || entries[0].Host != "pi2" || entries[0].Name != "garage.img.0.xz" || entries[0].Index != 0 {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestListCmd_RequiresOutputDir(t *testing.T) {
	code, _, stderr := run(t, "list")
	if code != 1 || !strings.Contains(stderr, "--output-dir is required") {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
}

func TestPruneCmd_RemovesStaleSlots(t *testing.T) {
	root := seedBackups(t)
	code, out, stderr := run(t, "prune", "-o", root, "-T", "pi1", "-r", "2", "-y")
	if code != 0 {
		t.Fatalf("prune failed: %s", stderr)
	}
	mustExist(t, filepath.Join(root, "pi1", "pi1.img.0"))
	mustExist(t, filepath.Join(root, "pi1", "pi1.img.1"))
	mustNotExist(t, filepath.Join(root, "pi1", "pi1.img.2"))
	mustNotExist(t, filepath.Join(root, "pi1", "pi1.img.3"))
	mustExist(t, filepath.Join(root, "pi1", "notes.txt"))
	mustExist(t, filepath.Join(root, "pi2", "garage.img.0.xz"))
	if !strings.Contains(out, "delete") || !strings.Contains(out, "Deleted 2 images") {
		t.Fatalf("expected delete preview and summary; got:\n%s", out)
	}
}

func TestPruneCmd_DryRunDoesNotDelete(t *testing.T) {
	root := seedBackups(t)
	code, out, _ := run(t, "prune", "-o", root, "-r", "1", "--dry-run")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, p := range []string{"pi1/pi1.img.1", "pi1/pi1.img.3"} {
		mustExist(t, filepath.Join(root, p))
	}
	if !strings.Contains(out, "delete") {
		t.Fatalf("expected preview of deletions even in dry-run; got:\n%s", out)
	}
}

func TestPruneCmd_DeclinedPromptKeepsFiles(t *testing.T) {
	root := seedBackups(t)
	var out, errBuf bytes.Buffer
	cmd := cli.NewRootCmd(&out, &errBuf)
	cmd.SetIn(strings.NewReader("n\n"))
	cmd.SetArgs([]string{"prune", "-o", root, "-r", "1"})
	if _, err := cmd.ExecuteC(); err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	mustExist(t, filepath.Join(root, "pi1", "pi1.img.3"))
	if !strings.Contains(out.String(), "Delete 3 images? [y/N]") {
		t.Fatalf("missing prompt:\n%s", out.String())
	}
}

func TestPruneCmd_NothingToPrune(t *testing.T) {
	root := seedBackups(t)
	code, out, _ := run(t, "prune", "-o", root, "-y")
	if code != 0 || !strings.Contains(out, "Nothing to prune") {
		t.Fatalf("code=%d out=%s", code, out)
	}
}

func TestPruneCmd_NonInteractiveStdinNeedsYes(t *testing.T) {
	root := seedBackups(t)
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	w.Close()

	var out, errBuf bytes.Buffer
	cmd := cli.NewRootCmd(&out, &errBuf)
	cmd.SetIn(r)
	cmd.SetArgs([]string{"prune", "-o", root, "-r", "1"})
	if _, err := cmd.ExecuteC(); err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected non-interactive refusal, got %v", err)
	}
	mustExist(t, filepath.Join(root, "pi1", "pi1.img.3"))
}
