package main

import (
	"fmt"
	"io"
	"os"

	"vaultmcp/internal/config"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Colors follow the hex palette used across the CLI.
var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff5fd2"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff5f")).
			Bold(true)

	missingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff005f")).
			Bold(true)
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the vaultmcp configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location and whether it exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printConfigPath(cmd.OutOrStdout(), opts)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return printConfig(cmd.OutOrStdout(), cfg)
		},
	})

	return cmd
}

func printConfigPath(w io.Writer, opts *rootOptions) error {
	path := opts.configPath
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return err
		}
	}

	status := okStyle.Render("exists")
	if _, err := os.Stat(path); err != nil {
		status = missingStyle.Render("missing")
	}

	fmt.Fprintf(w, "%s %s (%s)\n", labelStyle.Render("Config file:"), path, status)
	return nil
}

func printConfig(w io.Writer, cfg *config.Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	root, err := cfg.VaultRoot()
	if err != nil {
		root = err.Error()
	}

	fmt.Fprintln(w, headingStyle.Render("Effective configuration"))
	fmt.Fprintln(w, string(data))
	fmt.Fprintln(w, headingStyle.Render("Resolved paths"))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Vault root:"), root)
	return nil
}
