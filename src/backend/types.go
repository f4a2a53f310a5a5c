package backend

import (
	"context"
	"time"
)

// Entry is one rotation slot discovered in a backend.
type Entry struct {
	Host    string    `json:"host"`
	Name    string    `json:"name"`  // slot file name, e.g. pi1.img.0.gz
	Index   int       `json:"index"` // 0 is the newest
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Path    string    `json:"path"`
}

// StorageBackend lists the slots kept for a host.
type StorageBackend interface {
	List(host string) ([]Entry, error)
}

// Uploader copies a finished image to offsite storage.
type Uploader interface {
	// Upload sends the local file source to remote key.
	Upload(ctx context.Context, source, key string) error
	// Name returns the backend identifier (e.g. "azure").
	Name() string
}
