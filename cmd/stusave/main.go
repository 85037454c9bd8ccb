package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"stusave.app/config"
	"stusave.app/internal/appstate"
	"stusave.app/internal/client"
	"stusave.app/internal/logging"
	"stusave.app/internal/transfer"
)

type app struct {
	configPath string
	serverURL  string
	stateFile  string
	logLevel   string

	cfg    *config.ClientConfig
	logger *slog.Logger
}

func main() {
	if err := fang.Execute(context.Background(), newRootCmd()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "stusave",
		Short:         "Move your StuSave data between devices",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to client config file")
	root.PersistentFlags().StringVar(&a.serverURL, "server", "", "exchange server URL")
	root.PersistentFlags().StringVar(&a.stateFile, "state", "", "local data file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		a.sendCmd(),
		a.receiveCmd(),
		a.statusCmd(),
		a.discoverCmd(),
		a.tuiCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.LoadClient(a.configPath)
	if err != nil {
		return err
	}
	if a.serverURL != "" {
		cfg.ServerURL = a.serverURL
		cfg.AppURL = a.serverURL
	}
	if a.stateFile != "" {
		cfg.StateFile = a.stateFile
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Prefix: "stusave"})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) localState() *appstate.FileStore {
	return appstate.NewFileStore(a.cfg.StateFile)
}

func (a *app) newDialog(local transfer.LocalState, opts ...transfer.Option) (*transfer.Dialog, error) {
	ex, err := client.New(a.cfg.ServerURL, client.WithTimeout(a.cfg.RequestTimeout))
	if err != nil {
		return nil, err
	}
	opts = append([]transfer.Option{
		transfer.WithLogger(a.logger),
		transfer.WithShapeCheck(appstate.CheckShape),
	}, opts...)
	return transfer.NewDialog(ex, local, a.cfg.AppURL, opts...), nil
}
