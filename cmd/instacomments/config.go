package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"instacomments/pkg/config"
	"instacomments/pkg/ui"
)

func newConfigCmd(global *globalOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage instacomments configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (INSTACOMMENTS_*, .env files included)
  - Configuration file
  - Default values

Session cookies are never part of the configuration file.`,
	}

	configCmd.AddCommand(newConfigInitCmd(global))
	configCmd.AddCommand(newConfigShowCmd(global))
	configCmd.AddCommand(newConfigValidateCmd(global))
	return configCmd
}

func newConfigInitCmd(global *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Long: `Write a configuration file holding every option at its default value.

The file is written to the --config path, or ~/.config/instacomments/config.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := global.configFile
			if path == "" {
				path = config.DefaultPath()
			}

			if _, err := os.Stat(path); err == nil && !force {
				return usageError(fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path))
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return fatalError(err)
			}

			ui.PrintSuccess("Configuration file created: " + path)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "\nNext steps:")
			fmt.Fprintln(out, "1. Edit the file to change the defaults")
			fmt.Fprintln(out, "2. Run 'instacomments config validate' to check it")
			fmt.Fprintln(out, "3. Run 'instacomments --url <reel or post URL>'")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging the file, the environment and the
defaults. Upload secrets are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(global.configFile, global.flagMap(cmd))
			if err != nil {
				return usageError(err)
			}

			display := *cfg
			display.Upload.AccessKeyID = mask(display.Upload.AccessKeyID)
			display.Upload.SecretAccessKey = mask(display.Upload.SecretAccessKey)

			data, err := yaml.Marshal(&display)
			if err != nil {
				return fatalError(fmt.Errorf("failed to format configuration: %w", err))
			}

			out := cmd.OutOrStdout()
			ui.PrintHighlight("Current Configuration")
			fmt.Fprintln(out)
			fmt.Fprint(out, string(data))
			return nil
		},
	}
}

func newConfigValidateCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if global.configFile != "" {
				if _, err := os.Stat(global.configFile); err != nil {
					return usageError(fmt.Errorf("configuration file not found: %s", global.configFile))
				}
				ui.PrintInfo("Validating configuration", global.configFile)
			}

			cfg, err := config.Load(global.configFile, global.flagMap(cmd))
			if err != nil {
				out := cmd.OutOrStdout()
				ui.PrintError("Configuration has errors:")
				var joined interface{ Unwrap() []error }
				if errors.As(err, &joined) {
					for _, e := range joined.Unwrap() {
						fmt.Fprintf(out, "  - %v\n", e)
					}
				}
				return usageError(err)
			}

			ui.PrintSuccess("Configuration is valid")

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "\nConfiguration summary:")
			fmt.Fprintf(out, "  Output:            %s\n", cfg.Output.Path)
			fmt.Fprintf(out, "  Data format:       %s\n", cfg.Fetch.DataFormat)
			fmt.Fprintf(out, "  Per page:          %d\n", cfg.Fetch.PerPage)
			fmt.Fprintf(out, "  Rate limit:        %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
			fmt.Fprintf(out, "  Request timeout:   %s\n", cfg.Instagram.RequestTimeout)
			fmt.Fprintf(out, "  Log level:         %s\n", cfg.Logging.Level)
			if cfg.Upload.Bucket != "" {
				fmt.Fprintf(out, "  Upload bucket:     %s\n", cfg.Upload.Bucket)
			}
			return nil
		},
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
