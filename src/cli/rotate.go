package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"pi-backup/src/config"
	"pi-backup/src/rotation"
)

func newRotateCmd(stdout io.Writer) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "rotate <file> <dest-dir>",
		Short: "Move a file into slot 0 of dest-dir, shifting older slots up",
		Long: `rotate installs <file> as <dest-dir>/<name>.0 after renaming <name>.i to <name>.(i+1)
for every i below the retention count. The oldest slot is overwritten once the
retention count is reached.`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, dest := args[0], args[1]
			if keep < 1 {
				return &UsageError{Err: fmt.Errorf("--rotation-count must be >= 1, got %d", keep)}
			}
			name := rotation.ParseName(filepath.Base(file))
			if getSafetyOptions(cmd).DryRun {
				fmt.Fprintf(stdout, "[dry-run] rotate %s into %s keeping %d\n", file, filepath.Join(dest, name.Slot(0)), keep)
				return nil
			}
			if err := rotation.Rotate(file, dest, keep); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Rotated %s into %s\n", file, filepath.Join(dest, name.Slot(0)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&keep, "rotation-count", "r", config.DefaultRotationCount, "Number of slots to keep")
	return cmd
}
