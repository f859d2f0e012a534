package cmd

import (
	"fmt"

	"github.com/bnema/ambient-narrator/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			text := version.Version
			if long {
				text = version.String()
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	cmd.Flags().BoolVar(&long, "long", false, "Include commit and build date")
	return cmd
}
