package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rescp17/nearbyExchanger/pkg/config"
	"github.com/rescp17/nearbyExchanger/pkg/coordinator"
	"github.com/rescp17/nearbyExchanger/pkg/discovery"
	"github.com/rescp17/nearbyExchanger/pkg/exchange"
	"github.com/rescp17/nearbyExchanger/pkg/nearby/lan"
	"github.com/rescp17/nearbyExchanger/pkg/platform"
	"github.com/rescp17/nearbyExchanger/pkg/session"
	"github.com/rescp17/nearbyExchanger/pkg/storage"
	"github.com/rescp17/nearbyExchanger/pkg/ui"
)

type flags struct {
	configPath string
	dataDir    string
	name       string
	port       int
	store      string
	logFile    string
	debug      bool
}

func main() {
	var f flags
	cmd := &cobra.Command{
		Use:   "nearbyExchanger",
		Short: "Exchange files with nearby devices on the local network",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &f, nil)
		},
	}

	cmd.PersistentFlags().StringVar(&f.configPath, "config", "", "Path to the config file (default <data-dir>/config.yaml)")
	cmd.PersistentFlags().StringVar(&f.dataDir, "data-dir", "", "Directory for settings and saved state")
	cmd.PersistentFlags().StringVar(&f.name, "name", "", "Name announced to nearby devices")
	cmd.PersistentFlags().IntVar(&f.port, "port", 0, "Port the local API listens on (0 picks a free port)")
	cmd.PersistentFlags().StringVar(&f.store, "store", "", "Settings store, json or sqlite")
	cmd.PersistentFlags().StringVar(&f.logFile, "log-file", "debug.log", "File the log is written to")
	cmd.PersistentFlags().BoolVar(&f.debug, "debug", false, "Log at debug level")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the interactive exchanger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &f, nil)
		},
	}

	advertiseCmd := &cobra.Command{
		Use:   "advertise",
		Short: "Wait for nearby devices to connect and receive their files",
		RunE: func(cmd *cobra.Command, args []string) error {
			role := exchange.Advertiser
			return run(cmd, &f, &role)
		},
	}

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Look for nearby devices and send them files",
		RunE: func(cmd *cobra.Command, args []string) error {
			role := exchange.Discoverer
			return run(cmd, &f, &role)
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			raw, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	}

	configInitCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return err
		},
	}
	configCmd.AddCommand(configInitCmd)

	cmd.AddCommand(runCmd)
	cmd.AddCommand(advertiseCmd)
	cmd.AddCommand(discoverCmd)
	cmd.AddCommand(configCmd)

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, string, error) {
	dataDir := f.dataDir
	if dataDir == "" {
		resolved, err := config.ResolveDataDir()
		if err != nil {
			return nil, "", err
		}
		dataDir = resolved
	}
	path := f.configPath
	if path == "" {
		path = config.Path(dataDir)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if f.dataDir != "" || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	flagSet := cmd.Flags()
	if flagSet.Changed("name") {
		cfg.DeviceName = f.name
	}
	if flagSet.Changed("port") {
		cfg.Port = f.port
	}
	if flagSet.Changed("store") {
		cfg.Store = f.store
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

func run(cmd *cobra.Command, f *flags, role *exchange.Role) error {
	cfg, _, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	logFile, err := os.OpenFile(f.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}()
	log.SetOutput(logFile)
	level := slog.LevelInfo
	if f.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	store, err := storage.Open(cfg.Store, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}()

	app := coordinator.NewApp(store, platform.DownloadsProvider{}, platform.NewHostPolicy(platform.Current()), logger)
	if role != nil {
		app.SelectRoleOnStart(*role)
	}

	lanConfig := lan.DefaultConfig()
	lanConfig.Port = cfg.Port
	host := session.NewHost(session.NewLANFactory(session.LANOptions{
		LAN:         lanConfig,
		Transfer:    &cfg.Transfer,
		Adapter:     discovery.NewMDNSAdapter(),
		LocalName:   cfg.DeviceName,
		ServiceID:   cfg.ServiceID,
		Strategy:    cfg.StrategyValue(),
		Timeout:     cfg.ConnectTimeout,
		EventBuffer: cfg.EventBufferSize,
		SaveDir:     app.SaveDir,
		Logger:      logger,
	}), logger)

	logger.Info("Starting nearby exchanger", "data_dir", cfg.DataDir, "store", cfg.Store, "service_id", cfg.ServiceID)
	return ui.Run(cmd.Context(), app, host, ui.Options{Logger: logger})
}
