package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"stusave.app/internal/logging"
	"stusave.app/internal/transfer"
	"stusave.app/internal/ui"
)

func (a *app) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive transfer dialog",
		RunE: func(cmd *cobra.Command, args []string) error {
			// log lines would tear the alternate screen
			a.logger = logging.Discard()
			notices := ui.NewNotices()
			dialog, err := a.newDialog(a.localState(), transfer.WithNotifier(notices))
			if err != nil {
				return err
			}
			defer dialog.Close()

			_, err = tea.NewProgram(ui.New(dialog, notices), tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}
