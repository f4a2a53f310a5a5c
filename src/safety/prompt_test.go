package safety_test

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"pi-backup/src/safety"
)

func TestConfirm_AutoYes(t *testing.T) {
	var out bytes.Buffer
	ok, err := safety.Confirm(safety.Options{Yes: true}, strings.NewReader(""), &out, "delete 2 images?")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected auto-yes to confirm")
	}
	if out.Len() != 0 {
		t.Fatalf("auto-yes should not prompt; got %q", out.String())
	}
}

func TestConfirm_DryRunWinsOverYes(t *testing.T) {
	var out bytes.Buffer
	ok, err := safety.Confirm(safety.Options{DryRun: true, Yes: true}, strings.NewReader("y\n"), &out, "delete?")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("expected dry-run to decline")
	}
}

func TestConfirm_UserInput(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"Y\n", true},
		{"y", true},
		{"No\n", false},
		{"\n", false},
		{"", false},
	}
	for _, c := range cases {
		var out bytes.Buffer
		got, err := safety.Confirm(safety.Options{}, strings.NewReader(c.in), &out, "delete stale images?")
		if err != nil {
			t.Fatal(err)
		}
		if got != c.want {
			t.Fatalf("input %q: got %v want %v", c.in, got, c.want)
		}
		if !strings.Contains(out.String(), "delete stale images? [y/N]") {
			t.Fatalf("prompt missing question; got %q", out.String())
		}
	}
}

func TestConfirm_RefusesNonTerminalStdin(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()
	if _, err := w.WriteString("y\n"); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	ok, err := safety.Confirm(safety.Options{}, r, &out, "delete?")
	if !errors.Is(err, safety.ErrNotInteractive) || ok {
		t.Fatalf("got ok=%v err=%v, want ErrNotInteractive", ok, err)
	}
	if out.Len() != 0 {
		t.Fatalf("should not prompt; got %q", out.String())
	}

	ok, err = safety.Confirm(safety.Options{Yes: true}, r, &out, "delete?")
	if err != nil || !ok {
		t.Fatalf("--yes should bypass the terminal check: ok=%v err=%v", ok, err)
	}
}
