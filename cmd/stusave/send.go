package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stusave.app/internal/qr"
	"stusave.app/internal/transfer"
)

func (a *app) sendCmd() *cobra.Command {
	var (
		pngPath string
		noQR    bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Create a one-time transfer code for this device's data",
		RunE: func(cmd *cobra.Command, args []string) error {
			failures := &noticeRecorder{}
			dialog, err := a.newDialog(a.localState(), transfer.WithNotifier(failures))
			if err != nil {
				return err
			}

			dialog.Open()
			defer dialog.Close()

			if err := dialog.Generate(cmd.Context()); err != nil {
				return noticeError(failures.Last(), err)
			}
			share, ok := dialog.State().(transfer.ReadyToShare)
			if !ok {
				return fmt.Errorf("unexpected state %s", dialog.State().Name())
			}

			out := cmd.OutOrStdout()
			if !noQR {
				code, err := qr.Terminal(share.URL)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, code)
			}
			fmt.Fprintln(out, share.URL)
			fmt.Fprintln(out, "Scan it on your other device. The code works once and expires after a few minutes.")

			if pngPath != "" {
				png, err := qr.PNG(share.URL, qr.DefaultPNGSize)
				if err != nil {
					return err
				}
				if err := os.WriteFile(pngPath, png, 0o600); err != nil {
					return fmt.Errorf("write png: %w", err)
				}
				fmt.Fprintf(out, "QR code written to %s\n", pngPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pngPath, "png", "", "also write the QR code to this PNG file")
	cmd.Flags().BoolVar(&noQR, "no-qr", false, "print only the link")
	return cmd
}
