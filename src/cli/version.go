package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pi-backup/src/version"
)

func newVersionCmd(stdout io.Writer) *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				fmt.Fprintln(stdout, version.Info())
				return
			}
			fmt.Fprintln(stdout, version.Version)
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Include commit and build date")
	return cmd
}
