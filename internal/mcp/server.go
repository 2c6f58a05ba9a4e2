package mcp

import (
	"context"
	"fmt"
	"io"

	"vaultmcp/internal/config"
	"vaultmcp/internal/logging"
	"vaultmcp/internal/stdio"
	"vaultmcp/internal/tools"
	"vaultmcp/internal/vault"
)

// Server wires the vault writer, the tool registry, the dispatcher and the
// stdio transport together from a loaded configuration.
type Server struct {
	config     *config.Config
	logger     *logging.AppLogger
	writer     *vault.Writer
	dispatcher *Dispatcher
	transport  []stdio.Option
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, logger *logging.AppLogger) *Server {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Server{
		config: cfg,
		logger: logger,
	}
}

// WithIO replaces stdin and stdout, mostly for tests.
func (s *Server) WithIO(r io.Reader, w io.Writer) *Server {
	s.transport = append(s.transport, stdio.WithReader(r), stdio.WithWriter(w))
	return s
}

// InitializeComponents builds the vault writer, registers the built-in tools
// and creates the dispatcher. Start calls it when needed.
func (s *Server) InitializeComponents() error {
	if s.config == nil {
		return fmt.Errorf("configuration is required")
	}

	root, err := s.config.VaultRoot()
	if err != nil {
		return err
	}

	s.writer, err = vault.NewWriter(root, s.config.Vault.TargetDirectory, s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault writer: %w", err)
	}
	if !s.writer.TargetExists() {
		s.logger.Warn("Target directory does not exist; saves will fail until it is created",
			"path", s.writer.TargetPath())
	}

	saveTool, err := tools.NewSaveMarkdownTool(s.writer, s.logger)
	if err != nil {
		return err
	}

	s.dispatcher = NewDispatcher(s.config.Server.Name, s.config.Server.Version, tools.NewRegistry(), s.logger)
	if err := s.dispatcher.Register(saveTool); err != nil {
		return fmt.Errorf("failed to register %s: %w", saveTool.Name(), err)
	}

	s.logger.Info("MCP server components initialized",
		"vault", s.writer.Root(),
		"targetDirectory", s.writer.TargetDir(),
		"server", s.config.Server.Name,
		"version", s.config.Server.Version,
	)
	return nil
}

// Start serves requests until end of input or an I/O failure.
func (s *Server) Start(ctx context.Context) error {
	if s.dispatcher == nil {
		if err := s.InitializeComponents(); err != nil {
			return err
		}
	}

	s.logger.Info("Starting MCP server on stdio")
	opts := append([]stdio.Option{stdio.WithLogger(s.logger)}, s.transport...)
	if err := stdio.New(s.dispatcher, opts...).Run(ctx); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Stop logs shutdown. The stdio loop ends on its own at end of input.
func (s *Server) Stop() error {
	s.logger.Info("Stopping MCP server")
	return nil
}

// Dispatcher returns the server's dispatcher, or nil before initialization.
func (s *Server) Dispatcher() *Dispatcher { return s.dispatcher }
