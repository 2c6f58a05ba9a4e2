// Package stdio runs a line-delimited JSON-RPC loop over a reader and writer,
// stdin and stdout by default.
package stdio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"vaultmcp/internal/logging"
)

// Handler turns one request line into a response. A nil response means
// nothing is written for that line.
type Handler interface {
	Dispatch(ctx context.Context, line []byte) []byte
}

// Server reads requests one line at a time and writes one response line per request.
type Server struct {
	handler Handler
	reader  io.Reader
	writer  io.Writer
	logger  *logging.AppLogger
}

// Option configures a Server.
type Option func(*Server)

// WithReader replaces stdin as the request source.
func WithReader(r io.Reader) Option {
	return func(s *Server) {
		s.reader = r
	}
}

// WithWriter replaces stdout as the response sink.
func WithWriter(w io.Writer) Option {
	return func(s *Server) {
		s.writer = w
	}
}

// WithLogger sets the logger used for transport events.
func WithLogger(l *logging.AppLogger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a Server that forwards every line to handler.
func New(handler Handler, opts ...Option) *Server {
	s := &Server{
		handler: handler,
		reader:  os.Stdin,
		writer:  os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.GetDefault()
	}
	return s
}

// Run processes requests sequentially until end of input, which returns nil,
// or until reading or writing fails. Each response is flushed before the next
// line is read. Lines have no length limit and a final line without a
// trailing newline is still handled.
func (s *Server) Run(ctx context.Context) error {
	reader := bufio.NewReader(s.reader)
	writer := bufio.NewWriter(s.writer)

	s.logger.Info("Stdio transport started")
	var handled int

	for {
		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("failed to read request: %w", readErr)
		}

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			handled++
			if resp := s.handler.Dispatch(ctx, trimmed); resp != nil {
				if err := writeLine(writer, resp); err != nil {
					return fmt.Errorf("failed to write response: %w", err)
				}
			}
		}

		if errors.Is(readErr, io.EOF) {
			s.logger.Info("Stdio transport reached end of input", "requests", handled)
			return nil
		}
	}
}

func writeLine(w *bufio.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}
