package main

import (
	"io"
	"os"
	"strings"

	"refbot/internal/export"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var output string

	names := make([]string, 0, len(export.Entities))
	for _, e := range export.Entities {
		names = append(names, string(e))
	}

	cmd := &cobra.Command{
		Use:       "export <entity>",
		Short:     "Write stored records as CSV",
		Long:      "Write stored records as CSV. Entities: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := export.ParseEntity(args[0])
			if err != nil {
				return err
			}

			_, repo, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			return export.NewExporter(repo).Write(cmd.Context(), w, entity)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")

	return cmd
}
