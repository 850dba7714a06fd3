package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-alan/internal/config"
)

var version = "0.1.0"

var (
	configPath string
	portFlag   string
	logLevel   string
	debugFlag  bool
)

var rootCmd = &cobra.Command{
	Use:           "alan",
	Short:         "Alan voice assistant",
	Long:          "Alan listens for its wake phrase on connected devices and answers one spoken command at a time.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "alan", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./alan.yaml or ~/.alan/alan.yaml)")
	rootCmd.PersistentFlags().StringVarP(&portFlag, "port", "p", "", "HTTP port (overrides server.port)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging and request logs")

	rootCmd.AddCommand(serveCmd, configCmd, versionCmd)
}

// loadConfig loads the config file and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if portFlag != "" {
		cfg.Server.Port = portFlag
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if debugFlag {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
