package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"vaultmcp/internal/logging"
	"vaultmcp/internal/vault"

	"github.com/adrg/frontmatter"
	"github.com/invopop/jsonschema"
)

// SaveMarkdownToolName is the name clients use to call SaveMarkdownTool.
const SaveMarkdownToolName = "save_markdown_file"

// SaveMarkdownArgs are the arguments accepted by save_markdown_file.
// Pointer fields let a missing argument be told apart from an empty one.
type SaveMarkdownArgs struct {
	Filename *string `json:"filename" jsonschema:"description=The filename for the markdown file (without .md extension)"`
	Content  *string `json:"content" jsonschema:"description=The markdown content to save"`
}

// SaveMarkdownResult is returned to the client after a successful save.
type SaveMarkdownResult struct {
	FilePath string `json:"file_path"`
	Message  string `json:"message"`
	// FrontmatterKeys lists the front matter keys found in the saved note, if any.
	FrontmatterKeys []string `json:"frontmatter_keys,omitempty"`
}

// SaveMarkdownTool writes a new markdown note into the vault's target directory.
type SaveMarkdownTool struct {
	writer *vault.Writer
	logger *logging.AppLogger
	schema json.RawMessage
}

// NewSaveMarkdownTool creates the save_markdown_file tool backed by writer.
func NewSaveMarkdownTool(writer *vault.Writer, logger *logging.AppLogger) (*SaveMarkdownTool, error) {
	if writer == nil {
		return nil, fmt.Errorf("vault writer cannot be nil")
	}
	if logger == nil {
		logger = logging.GetDefault()
	}

	schema, err := reflectSchema(&SaveMarkdownArgs{})
	if err != nil {
		return nil, fmt.Errorf("failed to build input schema for %s: %w", SaveMarkdownToolName, err)
	}

	return &SaveMarkdownTool{
		writer: writer,
		logger: logger,
		schema: schema,
	}, nil
}

// reflectSchema builds an inline JSON Schema object for an argument struct.
func reflectSchema(v any) (json.RawMessage, error) {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(v)
	s.Version = ""

	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (t *SaveMarkdownTool) Name() string { return SaveMarkdownToolName }

func (t *SaveMarkdownTool) Description() string {
	return "Save a markdown file to the Obsidian vault"
}

func (t *SaveMarkdownTool) InputSchema() json.RawMessage { return t.schema }

// Execute decodes and checks the arguments, then saves the note.
func (t *SaveMarkdownTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	params, err := decodeSaveMarkdownArgs(args)
	if err != nil {
		return nil, err
	}

	path, err := t.writer.Save(*params.Filename, *params.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to save markdown file: %w", err)
	}

	return SaveMarkdownResult{
		FilePath:        path,
		Message:         fmt.Sprintf("Successfully saved markdown file: %s", *params.Filename),
		FrontmatterKeys: t.frontmatterKeys(*params.Content),
	}, nil
}

func decodeSaveMarkdownArgs(args json.RawMessage) (*SaveMarkdownArgs, error) {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("invalid parameters for %s: missing arguments", SaveMarkdownToolName)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()

	var params SaveMarkdownArgs
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("invalid parameters for %s: %w", SaveMarkdownToolName, err)
	}

	var missing []string
	if params.Filename == nil {
		missing = append(missing, "filename")
	}
	if params.Content == nil {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("invalid parameters for %s: missing field(s): %s",
			SaveMarkdownToolName, strings.Join(missing, ", "))
	}

	return &params, nil
}

// frontmatterKeys reports the front matter keys of a note. Front matter is
// informational only, so a note without it (or with broken front matter)
// yields no keys.
func (t *SaveMarkdownTool) frontmatterKeys(content string) []string {
	var matter map[string]any
	if _, err := frontmatter.MustParse(strings.NewReader(content), &matter); err != nil {
		t.logger.Debug("No usable front matter in saved note", "error", err)
		return nil
	}

	keys := make([]string, 0, len(matter))
	for k := range matter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
