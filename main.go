package main

import (
	"fmt"
	"log"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "topoterm [model-file]",
	Short: "topoterm draws an application topology in the terminal",
	Long: `topoterm renders the applications and relations of a model file as a
canvas of boxes and lines. Drag boxes around, relate applications by dragging
from one box to another, and drop charms or bundles by pasting a path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := commandConfig(cmd)
		if err != nil {
			return err
		}

		logger := slog.New(slog.DiscardHandler)
		if config.LogFile != "" {
			f, err := tea.LogToFile(config.LogFile, "topoterm")
			if err != nil {
				return fmt.Errorf("open log %s: %w", config.LogFile, err)
			}
			defer f.Close()
			logger = slog.New(slog.NewTextHandler(f, nil))
		}

		var path string
		if len(args) > 0 {
			path = args[0]
		}
		a, err := newApp(path, config, logger)
		if err != nil {
			return err
		}
		return runTUI(cmd.Context(), a, config.Watch && path != "")
	},
}

var (
	cfgFilePath string
	logFilePath string
	noWatch     bool
)

func init() {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		log.Fatal(err)
	}
	cfgFilePath = defaultPath

	rootCmd.PersistentFlags().StringVar(&cfgFilePath, "config", cfgFilePath, "config file (default is $HOME/.topoterm.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFilePath, "log", "", "write debug logs to this file")
	rootCmd.PersistentFlags().BoolVar(&noWatch, "no-watch", false, "do not reload the model file when it changes on disk")
}

// commandConfig loads the config file and applies flag overrides.
func commandConfig(cmd *cobra.Command) (*Config, error) {
	config, err := loadConfig(viper.New(), cfgFilePath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log") {
		config.LogFile = logFilePath
	}
	if noWatch {
		config.Watch = false
	}
	return config, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("error executing root command: %s", err)
	}
}

func main() {
	Execute()
}
