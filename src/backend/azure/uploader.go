package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/rs/zerolog"

	"pi-backup/src/retry"
	"pi-backup/src/util/checksum"
)

type uploadFunc func(ctx context.Context, container, key string, f *os.File, sha256 string) error
type statFunc func(ctx context.Context, container, key string) (found bool, size int64, err error)

// Uploader copies finished images to an Azure Blob container.
type Uploader struct {
	// Progress receives hashing progress; nil keeps it silent.
	Progress io.Writer

	cfg    Config
	ro     retry.Options
	upload uploadFunc
	stat   statFunc
}

// New returns an Uploader backed by a real blob client.
func New(cfg Config, ro retry.Options) (*Uploader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	client, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("azure: client: %w", err)
	}
	return &Uploader{
		cfg: cfg,
		ro:  ro,
		upload: func(ctx context.Context, container, key string, f *os.File, sum string) error {
			_, err := client.UploadFile(ctx, container, key, f, &azblob.UploadFileOptions{
				Metadata: map[string]*string{"sha256": to.Ptr(sum)},
			})
			return err
		},
		stat: func(ctx context.Context, container, key string) (bool, int64, error) {
			pager := client.NewListBlobsFlatPager(container, &azblob.ListBlobsFlatOptions{
				Prefix:     to.Ptr(key),
				MaxResults: to.Ptr(int32(1)),
			})
			for pager.More() {
				page, err := pager.NextPage(ctx)
				if err != nil {
					return false, 0, err
				}
				for _, it := range page.Segment.BlobItems {
					if it.Name != nil && *it.Name == key {
						if it.Properties != nil && it.Properties.ContentLength != nil {
							return true, *it.Properties.ContentLength, nil
						}
						return true, 0, nil
					}
				}
			}
			return false, 0, nil
		},
	}, nil
}

func (u *Uploader) Name() string { return "azure" }

// Upload sends source to key (prefixed by Config.Prefix) and checks the
// stored size afterwards.
func (u *Uploader) Upload(ctx context.Context, source, key string) error {
	logger := zerolog.Ctx(ctx)
	key = u.cfg.Key(key)
	digest, err := checksum.File(source, u.Progress)
	if err != nil {
		return fmt.Errorf("azure: checksum: %w", err)
	}
	sum, size := digest.SHA256, digest.Size

	start := time.Now()
	attempts, err := retry.Do(ctx, u.ro, isRetryable, func(ctx context.Context) error {
		f, err := os.Open(source)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		if err := u.upload(ctx, u.cfg.Container, key, f, sum); err != nil {
			logger.Debug().Err(err).Str("action", "azure_upload").Str("key", key).Msg("attempt failed")
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("azure: upload %s: %w", key, err)
	}
	logger.Info().Str("action", "azure_upload").Str("container", u.cfg.Container).Str("key", key).
		Int("attempts", attempts).Dur("elapsed_ms", time.Since(start)).Msg("upload OK")

	_, err = retry.Do(ctx, u.ro, isRetryable, func(ctx context.Context) error {
		found, remote, err := u.stat(ctx, u.cfg.Container, key)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("uploaded blob not found at %q", key)
		}
		if remote != size {
			return fmt.Errorf("size mismatch: local=%d, remote=%d", size, remote)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("azure: validate %s: %w", key, err)
	}
	logger.Info().Str("action", "azure_validate").Str("key", key).Int64("size", size).Msg("validation OK (size)")
	return nil
}

// isRetryable: timeout, 5xx, 429, 408, ServerBusy.
func isRetryable(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var re *azcore.ResponseError
	if errors.As(err, &re) {
		if re.StatusCode == http.StatusTooManyRequests || re.StatusCode == http.StatusRequestTimeout {
			return true
		}
		if re.StatusCode >= 500 && re.StatusCode <= 599 {
			return true
		}
		return re.ErrorCode == string(bloberror.ServerBusy)
	}
	return false
}
