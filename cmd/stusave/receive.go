package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"stusave.app/internal/appstate"
	"stusave.app/internal/qr"
	"stusave.app/internal/transfer"
	"stusave.app/internal/ui"
)

func (a *app) receiveCmd() *cobra.Command {
	var (
		imagePath string
		link      string
		frames    []string
		yes       bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Replace this device's data with data sent from another device",
		RunE: func(cmd *cobra.Command, args []string) error {
			dec, err := pickDecoder(imagePath, link, frames)
			if err != nil {
				return err
			}

			failures := &noticeRecorder{}
			dialog, err := a.newDialog(a.localState(), transfer.WithNotifier(failures))
			if err != nil {
				return err
			}

			dialog.Open()
			defer dialog.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if err := dialog.Scan(ctx, dec); err != nil {
				return noticeError(failures.Last(), err)
			}

			pending, err := awaitScan(ctx, dialog)
			if err != nil {
				return noticeError(failures.Last(), err)
			}

			incoming, err := appstate.Hydrate(pending.Payload)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Incoming data:")
			fmt.Fprintln(out, ui.SummaryView(incoming.Summarize(time.Now())))
			fmt.Fprintln(out)

			if !yes && !confirm(cmd.InOrStdin(), out, "Overwrite the data on this device? This cannot be undone. [y/N] ") {
				if err := dialog.Cancel(); err != nil {
					return err
				}
				fmt.Fprintln(out, "Transfer cancelled. Your data was not changed.")
				return nil
			}

			if err := dialog.Confirm(); err != nil {
				return err
			}
			fmt.Fprintln(out, "Data transferred successfully.")
			return nil
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "image file containing the QR code")
	cmd.Flags().StringVar(&link, "url", "", "transfer link, if you can copy it")
	cmd.Flags().StringSliceVar(&frames, "frames", nil, "camera snapshots to scan in order")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "overwrite without asking")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "give up scanning after this long")
	return cmd
}

func pickDecoder(imagePath, link string, frames []string) (transfer.Decoder, error) {
	set := 0
	for _, v := range []bool{imagePath != "", link != "", len(frames) > 0} {
		if v {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("exactly one of --image, --url or --frames is required")
	}

	switch {
	case imagePath != "":
		return qr.NewImageDecoder(imagePath), nil
	case link != "":
		return qr.NewTextDecoder(link), nil
	default:
		return qr.NewStreamDecoder(qr.NewFileFrames(frames...)), nil
	}
}

// awaitScan waits for the scan started on dialog to either produce a payload
// or fall back to Options.
func awaitScan(ctx context.Context, dialog *transfer.Dialog) (transfer.PendingConfirmation, error) {
	scanning := false
	for {
		if p, ok := dialog.State().(transfer.PendingConfirmation); ok {
			return p, nil
		}

		select {
		case <-ctx.Done():
			return transfer.PendingConfirmation{}, fmt.Errorf("no transfer code found: %w", ctx.Err())
		case st := <-dialog.Events():
			switch st := st.(type) {
			case transfer.Scanning:
				scanning = true
			case transfer.PendingConfirmation:
				return st, nil
			case transfer.Options:
				if scanning {
					return transfer.PendingConfirmation{}, errors.New("scan failed")
				}
			}
		}
	}
}

// noticeRecorder keeps the most recent error notice. Decoders report from
// their own goroutines, so access is locked.
type noticeRecorder struct {
	mu   sync.Mutex
	last *transfer.Notice
}

func (r *noticeRecorder) Notify(n transfer.Notice) {
	if n.Level != transfer.LevelError {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = &n
}

func (r *noticeRecorder) Last() *transfer.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func noticeError(n *transfer.Notice, err error) error {
	if n == nil {
		return err
	}
	return fmt.Errorf("%s: %s", n.Title, n.Message)
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
