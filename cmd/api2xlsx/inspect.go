package main

import (
	"fmt"

	"github.com/Sternrassler/api2xlsx/pkg/export"
	"github.com/Sternrassler/api2xlsx/pkg/preview"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print an exported workbook as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheet, err := export.Read(args[0])
			if err != nil {
				return err
			}
			preview.Sheet(cmd.OutOrStdout(), sheet.Headers, sheet.Rows)
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows\n", len(sheet.Rows))
			return nil
		},
	}
}
