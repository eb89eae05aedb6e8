package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-avatar/engine/avatar"
	"github.com/Carmen-Shannon/oxy-avatar/engine/config"
	"github.com/Carmen-Shannon/oxy-avatar/engine/diagnostic"
	"github.com/Carmen-Shannon/oxy-avatar/engine/loader"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds the flags shared by every subcommand.
type app struct {
	logLevel string
	workers  int
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "avatarsim",
		Short:         "Headless host for avatar animation manifests",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "minimum log level (debug, info, warn, error); defaults to the manifest log_level or info")
	root.PersistentFlags().IntVar(&a.workers, "workers", 4, "concurrent clip loads")

	root.AddCommand(newValidateCmd(a), newRunCmd(a))
	return root
}

// load reads and validates the manifest at path and builds the logger for it.
func (a *app) load(path string) (*config.Manifest, error) {
	m, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	level := a.logLevel
	if level == "" {
		level = m.LogLevel
	}
	if level == "" {
		level = "info"
	}
	logger, err := diagnostic.NewLogger(level)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return m, nil
}

// open builds an avatar for m backed by a glTF loader.
func (a *app) open(m *config.Manifest, options ...avatar.AvatarBuilderOption) (avatar.Avatar, error) {
	l := loader.NewLoader(loader.BackendTypeGLTF,
		loader.WithLogger(a.logger.Named("loader")),
		loader.WithWorkers(a.workers),
	)
	return avatar.Open(m, l, append([]avatar.AvatarBuilderOption{avatar.WithLogger(a.logger)}, options...)...)
}
