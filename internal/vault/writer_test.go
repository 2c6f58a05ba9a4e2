package vault

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vaultmcp/internal/logging"
)

// newTestVault creates a vault root with an existing target directory.
func newTestVault(t *testing.T) (*Writer, string) {
	t.Helper()

	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "Tips"), 0o755); err != nil {
		t.Fatalf("failed to create target directory: %v", err)
	}

	logger, _ := logging.NewTestLogger()
	w, err := NewWriter(root, "Tips", logger)
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	return w, root
}

func TestNewWriter(t *testing.T) {
	logger, _ := logging.NewTestLogger()

	tests := []struct {
		name      string
		root      string
		targetDir string
		wantErr   bool
	}{
		{"valid", "/tmp/vault", "Tips", false},
		{"empty root", "", "Tips", true},
		{"blank root", "   ", "Tips", true},
		{"empty target", "/tmp/vault", "", true},
		{"nested target", "/tmp/vault", "a/b", true},
		{"parent target", "/tmp/vault", "..", true},
		{"current target", "/tmp/vault", ".", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWriter(tt.root, tt.targetDir, logger)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewWriter(%q, %q) error = %v, wantErr %v", tt.root, tt.targetDir, err, tt.wantErr)
			}
		})
	}
}

func TestNewWriter_RelativeRootMadeAbsolute(t *testing.T) {
	w, err := NewWriter("relative/vault", "Tips", nil)
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	if !filepath.IsAbs(w.Root()) {
		t.Errorf("expected absolute root, got %q", w.Root())
	}
	if w.TargetDir() != "Tips" {
		t.Errorf("TargetDir() = %q, want Tips", w.TargetDir())
	}
}

func TestSave_CreatesFile(t *testing.T) {
	w, root := newTestVault(t)

	path, err := w.Save("my-note", "# Hello\n")
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	want := filepath.Join(root, "Tips", "my-note.md")
	if path != want {
		t.Errorf("Save() path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}
	if string(data) != "# Hello\n" {
		t.Errorf("file content = %q, want %q", data, "# Hello\n")
	}
}

func TestSave_KeepsExistingExtension(t *testing.T) {
	w, root := newTestVault(t)

	path, err := w.Save("already.md", "body")
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if path != filepath.Join(root, "Tips", "already.md") {
		t.Errorf("unexpected path %q", path)
	}
}

func TestSave_EmptyContent(t *testing.T) {
	w, _ := newTestVault(t)

	path, err := w.Save("empty", "")
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("expected empty file, got %d bytes", info.Size())
	}
}

func TestSave_NoClobber(t *testing.T) {
	w, root := newTestVault(t)

	if _, err := w.Save("x", "first"); err != nil {
		t.Fatalf("first Save returned error: %v", err)
	}

	_, err := w.Save("x", "second")
	if err == nil {
		t.Fatal("expected error on second save")
	}
	if !errors.Is(err, ErrFileExists) {
		t.Errorf("expected ErrFileExists, got %v", err)
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected 'already exists' in error, got %q", err.Error())
	}

	data, err := os.ReadFile(filepath.Join(root, "Tips", "x.md"))
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("file was modified: got %q, want %q", data, "first")
	}
}

func TestSave_ExistingDanglingSymlink(t *testing.T) {
	w, root := newTestVault(t)

	link := filepath.Join(root, "Tips", "dangling.md")
	if err := os.Symlink(filepath.Join(root, "nowhere.md"), link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if _, err := w.Save("dangling", "content"); err == nil {
		t.Fatal("expected error when a symlink already occupies the name")
	}
	if _, err := os.Stat(filepath.Join(root, "nowhere.md")); !os.IsNotExist(err) {
		t.Error("symlink target must not be created")
	}
}

func TestSave_TargetDirMissing(t *testing.T) {
	root := t.TempDir()
	logger, _ := logging.NewTestLogger()
	w, err := NewWriter(root, "Tips", logger)
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}

	_, err = w.Save("note", "content")
	if !errors.Is(err, ErrTargetDirMissing) {
		t.Fatalf("expected ErrTargetDirMissing, got %v", err)
	}

	if _, statErr := os.Stat(filepath.Join(root, "Tips")); !os.IsNotExist(statErr) {
		t.Error("Save must not create the target directory")
	}
}

func TestSave_TargetIsFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "Tips"), []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	logger, _ := logging.NewTestLogger()
	w, _ := NewWriter(root, "Tips", logger)

	if _, err := w.Save("note", "content"); !errors.Is(err, ErrTargetDirMissing) {
		t.Errorf("expected ErrTargetDirMissing, got %v", err)
	}
}

func TestSave_InvalidFilenames(t *testing.T) {
	w, root := newTestVault(t)

	for _, name := range []string{"", "../escape", "a/b", "CON", "con.txt", "a|b"} {
		t.Run(name, func(t *testing.T) {
			_, err := w.Save(name, "content")
			if !errors.Is(err, ErrInvalidFilename) {
				t.Errorf("Save(%q) expected ErrInvalidFilename, got %v", name, err)
			}
		})
	}

	// Nothing should have been written anywhere
	entries, err := os.ReadDir(filepath.Join(root, "Tips"))
	if err != nil {
		t.Fatalf("failed to read target dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty target dir, found %d entries", len(entries))
	}
	if _, err := os.Stat(filepath.Join(root, "escape.md")); !os.IsNotExist(err) {
		t.Error("traversal produced a file outside the target directory")
	}
}

func TestSave_SymlinkedTargetOutsideVault(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	if err := os.Symlink(outside, filepath.Join(root, "Tips")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	logger, _ := logging.NewTestLogger()
	w, err := NewWriter(root, "Tips", logger)
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}

	_, err = w.Save("note", "content")
	if !errors.Is(err, ErrOutsideVault) {
		t.Fatalf("expected ErrOutsideVault, got %v", err)
	}
	if !strings.Contains(err.Error(), "outside vault") {
		t.Errorf("expected 'outside vault' in error, got %q", err.Error())
	}

	if _, err := os.Stat(filepath.Join(outside, "note.md")); !os.IsNotExist(err) {
		t.Error("file was written outside the vault")
	}
}

func TestSave_SymlinkedTargetInsideVault(t *testing.T) {
	root := t.TempDir()
	realDir := filepath.Join(root, "Real")
	if err := os.Mkdir(realDir, 0o755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := os.Symlink(realDir, filepath.Join(root, "Tips")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	logger, _ := logging.NewTestLogger()
	w, _ := NewWriter(root, "Tips", logger)

	if _, err := w.Save("note", "inside"); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(realDir, "note.md")); err != nil {
		t.Errorf("expected file in symlink target inside vault: %v", err)
	}
}

func TestSave_SymlinkedVaultRoot(t *testing.T) {
	realRoot := t.TempDir()
	if err := os.Mkdir(filepath.Join(realRoot, "Tips"), 0o755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	linkRoot := filepath.Join(t.TempDir(), "vault-link")
	if err := os.Symlink(realRoot, linkRoot); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	logger, _ := logging.NewTestLogger()
	w, _ := NewWriter(linkRoot, "Tips", logger)

	if _, err := w.Save("note", "content"); err != nil {
		t.Fatalf("Save through symlinked root returned error: %v", err)
	}
}

func TestIsWithin(t *testing.T) {
	sep := string(filepath.Separator)
	base := sep + filepath.Join("vault")

	tests := []struct {
		target string
		want   bool
	}{
		{base, true},
		{filepath.Join(base, "Tips", "a.md"), true},
		{filepath.Join(base, "..", "other"), false},
		{sep + filepath.Join("vault-other", "a.md"), false},
		{sep + "etc", false},
	}

	for _, tt := range tests {
		if got := isWithin(base, tt.target); got != tt.want {
			t.Errorf("isWithin(%q, %q) = %v, want %v", base, tt.target, got, tt.want)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := ExpandPath("~/notes"); got != filepath.Join(home, "notes") {
		t.Errorf("ExpandPath(~/notes) = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %q", got)
	}
}
