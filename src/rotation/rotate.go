// Package rotation keeps a bounded, numbered history of backup files.
//
// Slot 0 is the newest file. Rotating shifts every present slot up by one,
// from the highest retained index downwards, so the file in the last slot is
// overwritten and the new file lands in slot 0.
package rotation

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
)

// Rotator rotates slots on a filesystem.
type Rotator struct {
	FS FS
}

// New returns a Rotator on the host filesystem.
func New() *Rotator { return &Rotator{FS: OSFS{}} }

// Rotate moves newFile into destDir as slot 0 after shifting existing slots.
func Rotate(newFile, destDir string, keep int) error {
	return New().Rotate(newFile, destDir, keep)
}

// Rotate shifts slots keep-2..0 of newFile's name in destDir up by one and
// installs newFile at slot 0. Missing slots are skipped. The first failing
// rename aborts the rotation.
func (r *Rotator) Rotate(newFile, destDir string, keep int) error {
	if keep < 1 {
		return fmt.Errorf("rotate: retention count must be >= 1, got %d", keep)
	}
	info, err := r.FS.Stat(newFile)
	if err != nil {
		return fmt.Errorf("rotate: new file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("rotate: new file %s is a directory", newFile)
	}
	n := ParseName(filepath.Base(newFile))

	for i := keep - 2; i >= 0; i-- {
		src := filepath.Join(destDir, n.Slot(i))
		if _, err := r.FS.Stat(src); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("rotate: stat %s: %w", src, err)
		}
		dst := filepath.Join(destDir, n.Slot(i+1))
		if err := r.FS.Rename(src, dst); err != nil {
			return fmt.Errorf("rotate: shift %s -> %s: %w", src, dst, err)
		}
		log.Debug().Str("action", "rotate_shift").Str("from", src).Str("to", dst).Msg("slot shifted")
	}

	dst := filepath.Join(destDir, n.Slot(0))
	if err := r.move(newFile, dst); err != nil {
		return fmt.Errorf("rotate: install %s -> %s: %w", newFile, dst, err)
	}
	log.Debug().Str("action", "rotate_install").Str("from", newFile).Str("to", dst).Msg("new slot installed")
	return nil
}

// move renames src to dst, copying when they live on different filesystems.
func (r *Rotator) move(src, dst string) error {
	err := r.FS.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	log.Debug().Str("action", "rotate_copy").Str("from", src).Str("to", dst).Msg("cross-device move, copying")
	if err := r.copyFile(src, dst); err != nil {
		return err
	}
	return r.FS.Remove(src)
}

func (r *Rotator) copyFile(src, dst string) error {
	in, err := r.FS.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp := dst + ".partial"
	out, err := r.FS.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = r.FS.Remove(tmp)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		_ = r.FS.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = r.FS.Remove(tmp)
		return err
	}
	return r.FS.Rename(tmp, dst)
}
