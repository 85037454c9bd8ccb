package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"stusave.app/config"
	"stusave.app/internal/discovery"
)

func (a *app) discoverCmd() *cobra.Command {
	var (
		wait    time.Duration
		service string
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find exchange servers on the local network",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()

			entries, err := discovery.Lookup(ctx, service, discovery.DefaultDomain)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No exchange servers found.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tURL")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\n", e.Name, e.URL())
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out, "\nUse one with: stusave --server <URL> ...")
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 3*time.Second, "how long to listen for announcements")
	cmd.Flags().StringVar(&service, "service", config.Default().Discovery.Service, "mDNS service type")
	return cmd
}
