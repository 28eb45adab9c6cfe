package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oron-mozes/creo-sub000/config"
)

func newConfigCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialize configuration",
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := config.Encode(st.cfg, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	showCmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml or toml")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config files that are read",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user:    %s\n", config.UserConfigPath())
			project := config.ProjectConfigPath()
			if project == "" {
				project = "(none)"
			}
			fmt.Fprintf(out, "project: %s\n", project)
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the user config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.UserConfigPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(showCmd, pathCmd, initCmd)
	return cmd
}
