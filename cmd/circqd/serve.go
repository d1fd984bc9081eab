package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DeterminateSystems/circq/alloccount"
	"github.com/DeterminateSystems/circq/internal/broker"
	"github.com/DeterminateSystems/circq/internal/config"
	"github.com/DeterminateSystems/circq/internal/httpapi"
	"github.com/DeterminateSystems/circq/internal/monitor"
)

func newServeCommand() *cobra.Command {
	var (
		configPath string
		listen     string
		debug      bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve task histories and live events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			logger, err := newLogger(debug)
			if err != nil {
				return errors.Wrap(err, "creating logger")
			}
			defer logger.Sync() //nolint:errcheck

			b := broker.New[monitor.IdentifiedEvent](cfg.SubscriberBuffer, logger.Named("broker"))
			tasks := monitor.NewTasks(b,
				monitor.WithHistorySize(cfg.HistorySize),
				monitor.WithMaxTasks(cfg.MaxTasks),
				monitor.WithLogger(logger.Named("monitor")),
			)
			for _, name := range cfg.Tasks {
				tasks.Get(name)
			}

			allocs := alloccount.New(alloccount.NewRuntimeSource(),
				alloccount.WithLogger(logger.Named("alloc")),
			)

			srv := httpapi.New(tasks, b, allocs, logger.Named("http"))
			srv.Heartbeat = cfg.Heartbeat
			srv.Retry = cfg.Retry

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("starting",
				zap.String("listen", cfg.Listen),
				zap.Int("history_size", cfg.HistorySize),
				zap.Strings("tasks", cfg.Tasks),
			)
			return srv.ListenAndServe(ctx, cfg.Listen)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on, overrides the config file")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}
