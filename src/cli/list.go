package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pi-backup/src/backend"
	dir "pi-backup/src/backend/directory"
	"pi-backup/src/config"
	"pi-backup/src/target"
	"pi-backup/src/util/progress"
)

// slotFilter selects slots by host and image name.
type slotFilter struct {
	outputDir string
	target    string
	imageName string
}

func (f *slotFilter) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "Backup directory (required)")
	cmd.Flags().StringVarP(&f.target, "target", "T", "", "Only this host (default: all hosts)")
	cmd.Flags().StringVarP(&f.imageName, "image-name", "n", "", "Only this image name")
}

func (f *slotFilter) entries() ([]backend.Entry, error) {
	if f.outputDir == "" {
		return nil, &UsageError{Err: fmt.Errorf("--output-dir is required")}
	}
	host := ""
	if f.target != "" {
		t, err := target.Parse(f.target, "")
		if err != nil {
			return nil, &UsageError{Err: err}
		}
		host = t.Host
	}
	b, err := dir.New(f.outputDir)
	if err != nil {
		return nil, err
	}
	entries, err := b.List(host)
	if err != nil {
		return nil, err
	}
	if f.imageName == "" {
		return entries, nil
	}
	want := config.NormalizeImageName(f.imageName)
	var out []backend.Entry
	for _, e := range entries {
		if n, _, ok := dir.ParseSlot(e.Name); ok && n.Base == want {
			out = append(out, e)
		}
	}
	return out, nil
}

func newListCmd(stdout io.Writer) *cobra.Command {
	var filter slotFilter
	var format string
	cmd := &cobra.Command{
		Use:   "list -o <output-dir>",
		Short: "List the backup images kept in an output directory",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := filter.entries()
			if err != nil {
				return err
			}
			switch format {
			case "json":
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				if entries == nil {
					entries = []backend.Entry{}
				}
				return enc.Encode(entries)
			case "table", "":
				return renderTable(stdout, entries, "")
			default:
				return &UsageError{Err: fmt.Errorf("unsupported --format: %s", format)}
			}
		},
	}
	filter.bind(cmd)
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	return cmd
}

// renderTable prints entries; a non-empty action adds an ACTION column.
func renderTable(w io.Writer, entries []backend.Entry, action string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "HOST\tSLOT\tNAME\tSIZE\tMODIFIED"
	if action != "" {
		header += "\tACTION"
	}
	fmt.Fprintln(tw, header)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s", e.Host, e.Index, e.Name, progress.HumanBytes(e.Size), e.ModTime.UTC().Format("2006-01-02T15:04:05Z"))
		if action != "" {
			fmt.Fprintf(tw, "\t%s", action)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
