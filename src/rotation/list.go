package rotation

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"
)

// Slot is one numbered backup file found on disk.
type Slot struct {
	Index   int       `json:"index"`
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// List returns the slots of n present in dir, ordered by index. A missing
// directory yields no slots.
func (r *Rotator) List(dir string, n Name) ([]Slot, error) {
	entries, err := r.FS.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list slots: %w", err)
	}
	var slots []Slot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		idx, ok := n.Index(e.Name())
		if !ok {
			continue
		}
		s := Slot{Index: idx, Name: e.Name(), Path: filepath.Join(dir, e.Name())}
		if info, err := e.Info(); err == nil {
			s.Size = info.Size()
			s.ModTime = info.ModTime()
		}
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Index < slots[j].Index })
	return slots, nil
}

// Stale returns the slots whose index is outside a retention of keep. They
// appear when the retention count is lowered between runs, since rotation
// only ever shifts slots below keep.
func (r *Rotator) Stale(dir string, n Name, keep int) ([]Slot, error) {
	if keep < 1 {
		return nil, fmt.Errorf("retention count must be >= 1, got %d", keep)
	}
	slots, err := r.List(dir, n)
	if err != nil {
		return nil, err
	}
	var stale []Slot
	for _, s := range slots {
		if s.Index >= keep {
			stale = append(stale, s)
		}
	}
	return stale, nil
}
