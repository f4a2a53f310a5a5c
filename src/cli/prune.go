package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pi-backup/src/backend"
	dir "pi-backup/src/backend/directory"
	"pi-backup/src/config"
	"pi-backup/src/rotation"
	"pi-backup/src/safety"
)

func newPruneCmd(stdout io.Writer) *cobra.Command {
	var filter slotFilter
	var keep int
	cmd := &cobra.Command{
		Use:   "prune -o <output-dir>",
		Short: "Delete images beyond the retention count",
		Long: `Rotation only shifts slots below the retention count, so lowering --rotation-count
leaves the higher slots behind. prune deletes every slot whose index is >= the
given count, after confirmation.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 1 {
				return &UsageError{Err: fmt.Errorf("--rotation-count must be >= 1, got %d", keep)}
			}
			entries, err := filter.entries()
			if err != nil {
				return err
			}
			toDelete, err := planPrune(rotation.New(), entries, keep)
			if err != nil {
				return err
			}
			if len(toDelete) == 0 {
				fmt.Fprintln(stdout, "Nothing to prune")
				return nil
			}

			// Preview
			_ = renderTable(stdout, toDelete, "delete")

			opts := getSafetyOptions(cmd)
			if opts.DryRun {
				return nil
			}
			ok, err := safety.Confirm(opts, cmd.InOrStdin(), stdout, fmt.Sprintf("Delete %d images?", len(toDelete)))
			if err != nil || !ok {
				return err
			}
			var errs []error
			for _, e := range toDelete {
				if err := os.Remove(e.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
					errs = append(errs, err)
				}
			}
			if err := errors.Join(errs...); err != nil {
				return fmt.Errorf("prune: %w", err)
			}
			fmt.Fprintf(stdout, "Deleted %d images\n", len(toDelete))
			return nil
		},
	}
	filter.bind(cmd)
	cmd.Flags().IntVarP(&keep, "rotation-count", "r", config.DefaultRotationCount, "Number of slots to keep per image")
	return cmd
}

// planPrune returns the stale slots of every (host, image) pair in entries.
func planPrune(r *rotation.Rotator, entries []backend.Entry, keep int) ([]backend.Entry, error) {
	type group struct {
		host string
		name rotation.Name
	}
	seen := map[group]bool{}
	var del []backend.Entry
	for _, e := range entries {
		n, _, ok := dir.ParseSlot(e.Name)
		if !ok {
			continue
		}
		g := group{host: e.Host, name: n}
		if seen[g] {
			continue
		}
		seen[g] = true
		stale, err := r.Stale(filepath.Dir(e.Path), n, keep)
		if err != nil {
			return nil, err
		}
		for _, s := range stale {
			del = append(del, backend.Entry{Host: e.Host, Name: s.Name, Index: s.Index, Size: s.Size, ModTime: s.ModTime, Path: s.Path})
		}
	}
	return del, nil
}
