// Package checksum digests finished images before they leave the host.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"pi-backup/src/util/progress"
)

// Digest is the SHA-256 of a file together with the number of bytes hashed.
type Digest struct {
	SHA256 string
	Size   int64
}

// File hashes the image at path. Progress goes to out when it is non-nil.
// A file that changes size while being hashed is an error.
func File(path string, out io.Writer) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return Digest{}, err
	}

	h := sha256.New()
	n, err := io.Copy(h, progress.NewReader(f, info.Size(), "sha256", out))
	if err != nil {
		return Digest{}, fmt.Errorf("hash %s: %w", path, err)
	}
	if n != info.Size() {
		return Digest{}, fmt.Errorf("hash %s: size changed from %d to %d bytes", path, info.Size(), n)
	}
	return Digest{SHA256: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}
