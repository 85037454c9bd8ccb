package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stusave.app/internal/ui"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show a summary of this device's data",
		RunE: func(cmd *cobra.Command, args []string) error {
			local := a.localState()
			s, err := local.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.SummaryView(s.Summarize(time.Now())))
			fmt.Fprintf(out, "\nData file: %s\n", local.Path())
			return nil
		},
	}
}
