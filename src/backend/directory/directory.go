package directory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"pi-backup/src/backend"
	"pi-backup/src/rotation"
)

// Backend implements backend.StorageBackend for the <root>/<host>/<image>.<n>[.ext] layout.
type Backend struct {
	Root string // absolute directory path
}

func New(root string) (*Backend, error) {
	if root == "" {
		return nil, errors.New("directory backend root must not be empty")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}
	return &Backend{Root: root}, nil
}

var slotPattern = regexp.MustCompile(`^(.+)\.(0|[1-9][0-9]*)(\.gz|\.xz)?$`)

// ParseSlot splits a slot file name into its rotation name and index.
func ParseSlot(file string) (rotation.Name, int, bool) {
	m := slotPattern.FindStringSubmatch(file)
	if m == nil {
		return rotation.Name{}, 0, false
	}
	idx, err := strconv.Atoi(m[2])
	if err != nil {
		return rotation.Name{}, 0, false
	}
	return rotation.Name{Base: m[1], Ext: m[3]}, idx, true
}

// List returns every slot under host, or under all hosts when host is empty.
func (b *Backend) List(host string) ([]backend.Entry, error) {
	hosts := []string{host}
	if host == "" {
		names, err := readDirNames(b.Root)
		if err != nil {
			return nil, err
		}
		hosts = names
	}
	var entries []backend.Entry
	for _, h := range hosts {
		e, err := b.listHost(h)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e...)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, c := entries[i], entries[j]
		if a.Host != c.Host {
			return a.Host < c.Host
		}
		an, _, _ := ParseSlot(a.Name)
		cn, _, _ := ParseSlot(c.Name)
		if an.String() != cn.String() {
			return an.String() < cn.String()
		}
		return a.Index < c.Index
	})
	return entries, nil
}

func (b *Backend) listHost(host string) ([]backend.Entry, error) {
	dir := filepath.Join(b.Root, host)
	des, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []backend.Entry
	for _, de := range des {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		_, idx, ok := ParseSlot(de.Name())
		if !ok {
			continue
		}
		e := backend.Entry{Host: host, Name: de.Name(), Index: idx, Path: filepath.Join(dir, de.Name())}
		if info, err := de.Info(); err == nil {
			e.Size = info.Size()
			e.ModTime = info.ModTime()
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func readDirNames(path string) ([]string, error) {
	des, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, de := range des {
		if de.IsDir() && !strings.HasPrefix(de.Name(), ".") {
			names = append(names, de.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
