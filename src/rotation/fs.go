package rotation

import (
	"io/fs"
	"os"
)

// FS is the subset of filesystem operations the rotation engine performs.
type FS interface {
	Stat(path string) (os.FileInfo, error)
	ReadDir(path string) ([]os.DirEntry, error)
	Rename(oldpath, newpath string) error
	Remove(path string) error
	MkdirAll(path string, perm fs.FileMode) error
	Open(path string) (*os.File, error)
	OpenFile(path string, flag int, perm fs.FileMode) (*os.File, error)
}

// OSFS implements FS on the host filesystem.
type OSFS struct{}

func (OSFS) Stat(path string) (os.FileInfo, error)        { return os.Stat(path) }
func (OSFS) ReadDir(path string) ([]os.DirEntry, error)   { return os.ReadDir(path) }
func (OSFS) Rename(oldpath, newpath string) error         { return os.Rename(oldpath, newpath) }
func (OSFS) Remove(path string) error                     { return os.Remove(path) }
func (OSFS) MkdirAll(path string, perm fs.FileMode) error { return os.MkdirAll(path, perm) }
func (OSFS) Open(path string) (*os.File, error)           { return os.Open(path) }
func (OSFS) OpenFile(path string, flag int, perm fs.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
