package azure

import (
	"context"
	"os"

	"pi-backup/src/retry"
)

// NewForTest builds an Uploader with injected blob operations.
func NewForTest(cfg Config, ro retry.Options,
	upload func(ctx context.Context, container, key string, f *os.File, sha256 string) error,
	stat func(ctx context.Context, container, key string) (bool, int64, error),
) *Uploader {
	return &Uploader{cfg: cfg, ro: ro, upload: upload, stat: stat}
}

var IsRetryable = isRetryable
