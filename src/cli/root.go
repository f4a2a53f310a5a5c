package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pi-backup/src/backend"
	"pi-backup/src/backend/azure"
	"pi-backup/src/backup/image"
	"pi-backup/src/config"
	"pi-backup/src/logx"
	"pi-backup/src/retry"
)

// UsageError marks errors caused by how the program was invoked. Execute
// prints the usage text after them.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}

type runnerFactory func(stdout, stderr io.Writer) *image.Runner

type uploaderFactory func(c azure.Config, progress io.Writer) (backend.Uploader, error)

var newRunnerFn runnerFactory = image.NewRunner

var newUploaderFn uploaderFactory = func(c azure.Config, progress io.Writer) (backend.Uploader, error) {
	u, err := azure.New(c, retry.Default)
	if err != nil {
		return nil, err
	}
	u.Progress = progress
	return u, nil
}

var hostnameFn = os.Hostname

// NewRootCmd returns the root cobra command for the pi-backup CLI. Run
// without a subcommand it performs a backup.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var flags config.Flags
	cmd := &cobra.Command{
		Use:   "pi-backup -o <output-dir> [flags]",
		Short: "Image a Raspberry Pi boot drive and keep a rotating set of backups",
		Long: `pi-backup streams a block device from a local or ssh-reachable host through dd,
shrinks (and optionally compresses) the image with pishrink.sh, and rotates it
into <output-dir>/<target>/<image>.0, shifting older images up to --rotation-count.`,
		Example: `  pi-backup -o /backups
  pi-backup -o /backups -T pi1 -r 3 -z
  pi-backup -o /backups -T admin@pi2:2222 -n garage --no-sudo`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd, &flags, stdout, stderr)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	flags.Bind(cmd.Flags())
	addGlobalFlags(cmd)

	cmd.AddCommand(newVersionCmd(stdout))
	cmd.AddCommand(newRotateCmd(stdout))
	cmd.AddCommand(newListCmd(stdout))
	cmd.AddCommand(newPruneCmd(stdout))

	return cmd
}

func runBackup(cmd *cobra.Command, flags *config.Flags, stdout, stderr io.Writer) error {
	host, err := hostnameFn()
	if err != nil {
		return fmt.Errorf("determine local hostname: %w", err)
	}

	cfg, err := flags.Build(cmd.Flags(), host)
	if err != nil {
		return err
	}
	if cfg.Quiet {
		logx.Quiet()
	}

	opts := getSafetyOptions(cmd)
	r := newRunnerFn(stdout, stderr)
	r.DryRun = opts.DryRun
	if cfg.Offsite == config.OffsiteAzure && !opts.DryRun {
		var progress io.Writer
		if !cfg.Quiet {
			progress = stdout
		}
		up, err := newUploaderFn(azure.ConfigFromEnv(), progress)
		if err != nil {
			return fmt.Errorf("offsite: %w", err)
		}
		r.Uploader = up
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	_, err = r.Run(ctx, cfg)
	return err
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd(stdout, stderr)
	root.SetArgs(args)
	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	if isUsageError(err) && cmd != nil {
		fmt.Fprint(stderr, cmd.UsageString())
	}
	return 1
}

// Execute runs the CLI with the process stdio and environment.
func Execute() int {
	// .env is optional.
	_ = godotenv.Load()
	logx.InitFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func isUsageError(err error) bool {
	var ue *UsageError
	var ve *config.ValidationError
	return errors.As(err, &ue) || errors.As(err, &ve)
}

// SetRunnerFactoryForTest replaces the backup runner constructor. The
// returned function restores the previous one.
func SetRunnerFactoryForTest(fn func(stdout, stderr io.Writer) *image.Runner) func() {
	prev := newRunnerFn
	newRunnerFn = fn
	return func() { newRunnerFn = prev }
}

// SetUploaderFactoryForTest replaces the offsite uploader constructor.
func SetUploaderFactoryForTest(fn func(azure.Config, io.Writer) (backend.Uploader, error)) func() {
	prev := newUploaderFn
	newUploaderFn = fn
	return func() { newUploaderFn = prev }
}

// SetHostnameForTest replaces the local hostname lookup.
func SetHostnameForTest(fn func() (string, error)) func() {
	prev := hostnameFn
	hostnameFn = fn
	return func() { hostnameFn = prev }
}
