// Package vault writes notes into a single target directory of a vault.
//
// Every save goes through the same checks, in order: filename validation,
// target directory precondition, path containment and no-clobber. The file
// itself is created through an os.Root opened on the target directory with
// O_EXCL, so an existing file is never replaced even if it appears between
// the existence check and the write.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vaultmcp/internal/logging"
)

var (
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrTargetDirMissing = errors.New("target directory does not exist")
	ErrOutsideVault     = errors.New("path is outside vault")
	ErrFileExists       = errors.New("file already exists")
)

// Writer saves markdown notes beneath Root/TargetDir.
type Writer struct {
	root      string
	targetDir string
	logger    *logging.AppLogger
}

// NewWriter creates a Writer for the given vault root and target directory name.
// The root is made absolute once here and stays fixed for the Writer's lifetime.
// Neither directory has to exist yet; the target directory is checked on every save.
func NewWriter(root, targetDir string, logger *logging.AppLogger) (*Writer, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("vault root cannot be empty")
	}
	if err := validateTargetDir(targetDir); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(ExpandPath(root))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve vault root: %w", err)
	}

	if logger == nil {
		logger = logging.GetDefault()
	}

	return &Writer{
		root:      filepath.Clean(absRoot),
		targetDir: targetDir,
		logger:    logger,
	}, nil
}

// validateTargetDir makes sure the configured target is a single path segment.
func validateTargetDir(targetDir string) error {
	if strings.TrimSpace(targetDir) == "" {
		return fmt.Errorf("target directory cannot be empty")
	}
	if targetDir == "." || targetDir == ".." || strings.ContainsAny(targetDir, `/\`) {
		return fmt.Errorf("target directory must be a single directory name: %q", targetDir)
	}
	return nil
}

// Root returns the absolute vault root.
func (w *Writer) Root() string { return w.root }

// TargetDir returns the configured target directory name.
func (w *Writer) TargetDir() string { return w.targetDir }

// TargetPath returns the absolute path of the target directory.
func (w *Writer) TargetPath() string {
	return filepath.Join(w.root, w.targetDir)
}

// TargetExists reports whether the target directory exists and is a directory.
func (w *Writer) TargetExists() bool {
	info, err := os.Stat(w.TargetPath())
	return err == nil && info.IsDir()
}

// Save writes content to a new file named filename (plus ".md" when missing)
// inside the target directory and returns the path of the created file.
//
// Save never creates the target directory and never overwrites or appends to
// an existing file. On failure no file is left behind.
func (w *Writer) Save(filename, content string) (string, error) {
	start := time.Now()
	defer w.logger.LogPerformance("vault.Save", start)

	if err := ValidateFilename(filename); err != nil {
		w.logger.Debug("Rejected filename", "filename", filename, "error", err)
		return "", err
	}

	if !w.TargetExists() {
		return "", fmt.Errorf("%w: %s", ErrTargetDirMissing, w.TargetPath())
	}

	name := WithMarkdownExt(filename)
	filePath := filepath.Join(w.TargetPath(), name)

	if err := w.checkContainment(filePath); err != nil {
		w.logger.Warn("Containment check failed", "path", filePath, "error", err)
		return "", err
	}

	// Lstat so that a dangling symlink also counts as an existing file
	if _, err := os.Lstat(filePath); err == nil {
		return "", fmt.Errorf("%w: %s", ErrFileExists, filePath)
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("cannot check existing file %s: %w", filePath, err)
	}

	if err := w.writeNew(name, content); err != nil {
		return "", err
	}

	w.logger.Info("Saved markdown file", "path", filePath, "bytes", len(content))
	return filePath, nil
}

// checkContainment verifies that filePath resolves to a descendant of the vault root.
func (w *Writer) checkContainment(filePath string) error {
	canonicalRoot, err := filepath.EvalSymlinks(w.root)
	if err != nil {
		return fmt.Errorf("failed to canonicalize vault path %s: %w", w.root, err)
	}
	canonicalRoot = filepath.Clean(canonicalRoot)

	canonicalFile, err := canonicalPath(filePath)
	if err != nil {
		return fmt.Errorf("failed to canonicalize file path %s: %w", filePath, err)
	}

	if !isWithin(canonicalRoot, canonicalFile) || canonicalFile == canonicalRoot {
		return fmt.Errorf("%w: %s", ErrOutsideVault, filePath)
	}
	return nil
}

// writeNew creates name inside the target directory with O_EXCL and writes content.
func (w *Writer) writeNew(name, content string) error {
	root, err := os.OpenRoot(w.TargetPath())
	if err != nil {
		return fmt.Errorf("cannot open target directory: %w", err)
	}
	defer root.Close()

	f, err := root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrFileExists, filepath.Join(w.TargetPath(), name))
		}
		return fmt.Errorf("failed to create file %s: %w", name, err)
	}

	var written bool
	defer func() {
		if !written {
			root.Remove(name) // Clean up on failure
		}
	}()

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("failed to write file %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", name, err)
	}

	written = true
	return nil
}
