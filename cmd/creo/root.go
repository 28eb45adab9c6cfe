package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/oron-mozes/creo-sub000/config"
	"github.com/oron-mozes/creo-sub000/logging"
)

// state is filled by the root command before any subcommand runs.
type state struct {
	configPath string
	cfg        *config.Config
	level      slog.LevelVar
	logger     *logging.ContextLogger
}

func newRootCmd() *cobra.Command {
	st := &state{}

	rootCmd := &cobra.Command{
		Use:   "creo",
		Short: "Conversational influencer-campaign assistant",
		Long: `creo walks a small business owner from a first message to a ready
influencer campaign. Each turn runs through a team of stage workers and a
presenter, streams the reply, and keeps session state between turns.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&st.configPath, "config", "", "config file (default: XDG config plus .creo.yaml)")

	rootCmd.AddCommand(
		newChatCmd(st),
		newHistoryCmd(st),
		newConfigCmd(st),
		newVersionCmd(),
	)

	return rootCmd
}

func (st *state) load(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if st.configPath != "" {
		cfg, err = config.LoadFromPath(st.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	st.cfg = cfg
	st.level.Set(logging.ParseLevel(cfg.Log.Level).Slog())
	st.logger = logging.NewLogger(&logging.LoggerConfig{
		Format:   cfg.Log.Format,
		Output:   cmd.ErrOrStderr(),
		LevelVar: &st.level,
	}).WithComponent("creo")

	return nil
}

// watch reloads the log level when the config file changes. Other settings
// take effect on the next start.
func (st *state) watch() {
	path := st.configPath
	if path == "" {
		path = config.ProjectConfigPath()
	}
	if path == "" {
		return
	}

	_, err := config.Watch(path, func(cfg *config.Config, err error) {
		if err != nil {
			st.logger.Warn("config.reload.failed", "path", path, "error", err.Error())
			return
		}
		st.level.Set(logging.ParseLevel(cfg.Log.Level).Slog())
		st.logger.Info("config.reloaded", "path", path, "log_level", cfg.Log.Level)
	})
	if err != nil {
		st.logger.Warn("config.watch.failed", "path", path, "error", err.Error())
	}
}
