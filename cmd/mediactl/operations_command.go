package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/maauso/mediaforge-api/internal/operation"
)

type operationView struct {
	Kind        string `json:"kind"`
	Inputs      int    `json:"inputs"`
	Description string `json:"description"`
}

func newOperationsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "operations",
		Short: "List supported operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := operation.Specs()
			if asJSON {
				views := make([]operationView, 0, len(specs))
				for _, s := range specs {
					views = append(views, operationView{Kind: string(s.Kind), Inputs: s.Inputs, Description: s.Description})
				}
				return writeJSON(cmd, views)
			}

			rows := make([][]string, 0, len(specs))
			for _, s := range specs {
				rows = append(rows, []string{string(s.Kind), strconv.Itoa(s.Inputs), s.Description})
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"Kind", "Inputs", "Description"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
