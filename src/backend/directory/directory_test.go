package directory_test

import (
	"os"
	"path/filepath"
	"testing"

	dir "pi-backup/src/backend/directory"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestList_AllHostsSorted(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "pi2", "pi2.img.0"))
	touch(t, filepath.Join(root, "pi1", "pi1.img.1.gz"))
	touch(t, filepath.Join(root, "pi1", "pi1.img.0.gz"))
	touch(t, filepath.Join(root, "pi1", "notes.txt"))
	touch(t, filepath.Join(root, "pi1", ".pi1.img.0.partial"))

	b, err := dir.New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries, err := b.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Host+"/"+e.Name)
	}
	want := []string{"pi1/pi1.img.0.gz", "pi1/pi1.img.1.gz", "pi2/pi2.img.0"}
	if len(got) != len(want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entries = %v, want %v", got, want)
		}
	}
}

func TestList_SingleHostMissingDir(t *testing.T) {
	b, err := dir.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	entries, err := b.List("ghost")
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty list, got %v, %v", entries, err)
	}
}

func TestNew_RejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	touch(t, f)
	if _, err := dir.New(f); err == nil {
		t.Fatalf("expected error for non-directory root")
	}
	if _, err := dir.New(""); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestParseSlot(t *testing.T) {
	n, idx, ok := dir.ParseSlot("pi1.img.12.xz")
	if !ok || idx != 12 || n.Base != "pi1.img" || n.Ext != ".xz" {
		t.Fatalf("ParseSlot = %#v %d %v", n, idx, ok)
	}
	if _, _, ok := dir.ParseSlot("pi1.img"); ok {
		t.Fatalf("pi1.img is not a slot")
	}
	if _, _, ok := dir.ParseSlot("pi1.img.01"); ok {
		t.Fatalf("leading zero index must not match")
	}
}
