// Package image runs one disk-image backup: check preconditions, dump the
// device through a pipe, fix ownership, shrink, and rotate the result into
// the per-host output directory. Every step is fail-fast.
package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pi-backup/src/backend"
	"pi-backup/src/config"
	"pi-backup/src/rotation"
	"pi-backup/src/tools"
	"pi-backup/src/transport"
	"pi-backup/src/util/progress"
)

// ErrDeviceNotFound means the configured drive is absent on the target.
var ErrDeviceNotFound = errors.New("device not found")

// StepError names the step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// Result describes a finished run.
type Result struct {
	RunID     string
	SlotPath  string
	UploadKey string
	Bytes     int64
	Elapsed   time.Duration
}

// Runner executes backups. Zero-value fields are filled with defaults by
// NewRunner; tests replace them with fakes.
type Runner struct {
	// Local runs the writer side of the dump, chown and shrink.
	Local transport.Transport
	// Remote reaches the target host; nil means TransportFor(cfg).
	Remote   transport.Transport
	Tools    tools.Locator
	Rotator  *rotation.Rotator
	Uploader backend.Uploader
	Stdout   io.Writer
	Stderr   io.Writer
	DryRun   bool
	Now      func() time.Time
}

// NewRunner returns a Runner on the host system writing to stdout/stderr.
func NewRunner(stdout, stderr io.Writer) *Runner {
	return &Runner{
		Local:   transport.Local{},
		Rotator: rotation.New(),
		Stdout:  stdout,
		Stderr:  stderr,
		Now:     time.Now,
	}
}

const statusPrefix = "pi-backup: "

func (r *Runner) status(cfg config.Config, format string, args ...any) {
	if cfg.Quiet || r.Stdout == nil {
		return
	}
	fmt.Fprintf(r.Stdout, statusPrefix+format+"\n", args...)
}

// toolOut returns where external tool output goes: nowhere in quiet mode.
func (r *Runner) toolOut(cfg config.Config, w io.Writer) io.Writer {
	if cfg.Quiet {
		return nil
	}
	return w
}

// Run performs the backup described by cfg.
func (r *Runner) Run(ctx context.Context, cfg config.Config) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	logger := log.With().Str("run_id", res.RunID).Str("target", cfg.Target.String()).Logger()
	ctx = logger.WithContext(ctx)
	start := r.now()

	remote := r.Remote
	if remote == nil {
		remote = TransportFor(cfg)
	}

	if r.DryRun {
		for _, s := range Plan(cfg) {
			fmt.Fprintf(r.Stdout, "%s[dry-run] %-12s %-16s %s\n", statusPrefix, s.Name, s.Transport, s.Description)
		}
		return res, nil
	}

	r.status(cfg, "backing up %s on %s", cfg.Drive, cfg.Target)
	if _, err := r.Tools.Require(RequiredTools(cfg)...); err != nil {
		return res, &StepError{Step: "check-tools", Err: err}
	}
	if err := r.checkDevice(ctx, remote, cfg); err != nil {
		return res, &StepError{Step: "check-device", Err: err}
	}

	r.status(cfg, "dumping %s to %s", cfg.Drive, cfg.ImagePath())
	n, err := r.dump(ctx, remote, cfg)
	if err != nil {
		return res, &StepError{Step: "dump", Err: err}
	}
	res.Bytes = n
	logger.Info().Str("action", "dump").Int64("bytes", n).Msg("image written")

	r.status(cfg, "setting owner %s:%s", cfg.User, cfg.Group)
	if err := r.Local.Run(ctx, ChownCommand(cfg), r.toolStreams(cfg)); err != nil {
		return res, &StepError{Step: "chown", Err: err}
	}

	r.status(cfg, "shrinking image (compression: %s)", cfg.Compression)
	if err := r.Local.Run(ctx, ShrinkCommand(cfg), r.toolStreams(cfg)); err != nil {
		return res, &StepError{Step: "shrink", Err: err}
	}
	shrunk := cfg.ShrunkPath()
	if _, err := r.Rotator.FS.Stat(shrunk); err != nil {
		return res, &StepError{Step: "shrink", Err: fmt.Errorf("expected output %s: %w", shrunk, err)}
	}

	dest := cfg.DestDir()
	if err := r.Rotator.FS.MkdirAll(dest, 0o755); err != nil {
		return res, &StepError{Step: "mkdir", Err: err}
	}

	r.status(cfg, "rotating into %s (keeping %d)", dest, cfg.RotationCount)
	if err := r.Rotator.Rotate(shrunk, dest, cfg.RotationCount); err != nil {
		return res, &StepError{Step: "rotate", Err: err}
	}
	res.SlotPath = filepath.Join(dest, SlotName(cfg, 0))

	if r.Uploader != nil {
		key := OffsiteKey(cfg, r.now())
		r.status(cfg, "uploading to %s as %s", r.Uploader.Name(), key)
		if err := r.Uploader.Upload(ctx, res.SlotPath, key); err != nil {
			return res, &StepError{Step: "offsite", Err: err}
		}
		res.UploadKey = key
	}

	res.Elapsed = r.now().Sub(start)
	logger.Info().Str("action", "backup").Str("slot", res.SlotPath).Dur("elapsed_ms", res.Elapsed).Msg("backup complete")
	r.status(cfg, "backup complete: %s", res.SlotPath)
	return res, nil
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Runner) toolStreams(cfg config.Config) transport.Streams {
	return transport.Streams{Stdout: r.toolOut(cfg, r.Stdout), Stderr: r.toolOut(cfg, r.Stderr)}
}

func (r *Runner) checkDevice(ctx context.Context, t transport.Transport, cfg config.Config) error {
	out, err := transport.Output(ctx, t, DeviceListCommand(cfg))
	if err != nil {
		return fmt.Errorf("list devices on %s: %w", cfg.Target.Host, err)
	}
	if !HasDisk(out, cfg.Drive) {
		return fmt.Errorf("%w: %s on %s; choose the boot drive with --drive (run 'sudo fdisk -l' on %s to list devices)",
			ErrDeviceNotFound, cfg.Drive, cfg.Target.Host, cfg.Target.Host)
	}
	return nil
}

// HasDisk reports whether fdisk -l output lists drive as a disk.
func HasDisk(fdiskOutput, drive string) bool {
	re := regexp.MustCompile(`(?m)Disk ` + regexp.QuoteMeta(drive) + `(:|\s|$)`)
	return re.MatchString(fdiskOutput)
}

// dump pipes the device reader on the target into the local writer and
// waits for both ends. Whichever side fails first cancels the other, and
// its error is the one reported.
func (r *Runner) dump(ctx context.Context, remote transport.Transport, cfg config.Config) (int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pr, pw := io.Pipe()
	counter := progress.NewReader(pr, 0, "dump", r.toolOut(cfg, r.Stdout))

	var (
		mu          sync.Mutex
		firstFailed string
	)
	fail := func(side string) {
		mu.Lock()
		if firstFailed == "" {
			firstFailed = side
		}
		mu.Unlock()
	}

	readErr := make(chan error, 1)
	go func() {
		err := remote.Run(ctx, DumpReader(cfg), transport.Streams{Stdout: pw, Stderr: r.toolOut(cfg, r.Stderr)})
		if err != nil {
			fail("read")
		}
		// A nil error closes the pipe with EOF.
		pw.CloseWithError(err)
		if err != nil {
			cancel()
		}
		readErr <- err
	}()

	writeErr := r.Local.Run(ctx, DumpWriter(cfg), transport.Streams{Stdin: counter, Stderr: r.toolOut(cfg, r.Stderr)})
	if writeErr != nil {
		fail("write")
		pr.CloseWithError(writeErr)
		cancel()
	}
	rerr := <-readErr

	mu.Lock()
	first := firstFailed
	mu.Unlock()
	switch {
	case rerr != nil && (writeErr == nil || first == "read"):
		zerolog.Ctx(ctx).Debug().Err(rerr).Str("action", "dump").AnErr("write_err", writeErr).Msg("reader failed")
		r.removePartial(cfg.ImagePath())
		return counter.BytesRead(), fmt.Errorf("read %s: %w", cfg.Drive, rerr)
	case writeErr != nil:
		r.removePartial(cfg.ImagePath())
		return counter.BytesRead(), fmt.Errorf("write %s: %w", cfg.ImagePath(), writeErr)
	}
	return counter.BytesRead(), nil
}

func (r *Runner) removePartial(path string) {
	if err := r.Rotator.FS.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("file", path).Msg("failed to remove partial image")
	}
}

// SlotName is the file name of slot i for cfg's image.
func SlotName(cfg config.Config, i int) string {
	return rotation.ParseName(filepath.Base(cfg.ShrunkPath())).Slot(i)
}

// OffsiteKey is the blob key for an upload: <host>/<image>.<timestamp><ext>.
// Offsite copies are timestamped rather than rotated.
func OffsiteKey(cfg config.Config, now time.Time) string {
	n := rotation.ParseName(filepath.Base(cfg.ShrunkPath()))
	return fmt.Sprintf("%s/%s.%s%s", cfg.Target.Host, n.Base, now.UTC().Format("2006-01-02T15-04-05Z"), n.Ext)
}
