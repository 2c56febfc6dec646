package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tasksync/internal/config"
	"tasksync/internal/logger"
	"tasksync/server"
)

var (
	cfgPath    string
	addr       string
	dbPath     string
	logLevel   string
	logFile    string
	logConsole bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tasksync-server",
	Short: "TaskSync - sync backend for a personal task manager",
	Long: `TaskSync is the HTTP sync backend for a personal task-management
client: CRUD and bulk-sync endpoints for projects, tasks, and time
entries over a SQLite store.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// CLI flags override the config file
		if cmd.Flags().Changed("addr") {
			cfg.Addr = addr
		}
		if cmd.Flags().Changed("db") {
			cfg.DBPath = dbPath
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
		}
		if cmd.Flags().Changed("log-console") {
			cfg.LogConsole = logConsole
		}

		logConfig := logger.DefaultConfig()
		logConfig.Level = logger.ParseLevel(cfg.LogLevel)
		logConfig.FilePath = cfg.LogFile
		logConfig.Console = cfg.LogConsole

		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := server.New(cfg)
		if err != nil {
			logger.Error("failed to create server", logger.F("error", err))
			return fmt.Errorf("failed to create server: %w", err)
		}
		defer func() {
			if err := srv.Close(); err != nil {
				logger.Error("error closing server", logger.F("error", err))
			}
		}()

		logger.Info("server starting",
			logger.F("addr", cfg.Addr),
			logger.F("db", cfg.DBPath))
		fmt.Printf("TaskSync server listening on %s\n", cfg.Addr)

		return srv.Start(cfg.Addr)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "Listen address")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Enable console logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
