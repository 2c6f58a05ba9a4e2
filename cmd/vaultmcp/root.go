package main

import (
	"fmt"

	"vaultmcp/internal/config"
	"vaultmcp/internal/logging"
	"vaultmcp/internal/mcp"

	"github.com/spf13/cobra"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configPath string
	vaultPath  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "vaultmcp",
		Short: "MCP server that saves markdown notes into an Obsidian vault",
		Long: `vaultmcp speaks the Model Context Protocol over stdin/stdout.

It exposes one tool, save_markdown_file, which writes a new note into the
configured target directory of the vault. Existing files are never
overwritten and the target directory is never created implicitly.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (default $XDG_CONFIG_HOME/vaultmcp/config.yaml)")
	cmd.PersistentFlags().StringVarP(&opts.vaultPath, "vault-path", "v", "", "vault root directory (overrides config)")

	cmd.AddCommand(newConfigCmd(opts))
	return cmd
}

// loadConfig resolves the effective configuration: file, then environment,
// then the --vault-path flag.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFrom(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if opts.vaultPath != "" {
		cfg.Vault.Path = opts.vaultPath
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		logging.Error("Error loading config", "error", err)
		return err
	}

	appLogger, err := logging.New(cfg.LoggingOptions())
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer appLogger.Close()
	logging.SetDefault(appLogger)

	appLogger.Info("Configuration loaded",
		"vault", cfg.Vault.Path,
		"targetDirectory", cfg.Vault.TargetDirectory,
		"logLevel", cfg.Logging.Level,
	)

	server := mcp.NewServer(cfg, appLogger)
	defer server.Stop()

	if err := server.Start(cmd.Context()); err != nil {
		appLogger.Error("Server stopped with error", "error", err)
		return err
	}
	return nil
}
