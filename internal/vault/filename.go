package vault

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MarkdownExt is appended to saved filenames that do not already carry it.
const MarkdownExt = ".md"

// invalidFilenameChars are rejected anywhere in a filename.
const invalidFilenameChars = `/\:*?"<>|`

// reservedNames are device names that cannot be used as filenames on Windows,
// either alone or followed by an extension.
var reservedNames = []string{
	"CON", "PRN", "AUX", "NUL",
	"COM1", "COM2", "COM3", "COM4", "COM5", "COM6", "COM7", "COM8", "COM9",
	"LPT1", "LPT2", "LPT3", "LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9",
}

// ValidateFilename checks a caller-supplied note name without touching the filesystem.
//
// The name is rejected when it:
//   - is empty
//   - contains any of / \ : * ? " < > |
//   - contains ".." anywhere
//   - is a reserved device name (CON, PRN, AUX, NUL, COM1-9, LPT1-9), alone or
//     followed by ".", compared case-insensitively
//   - contains control characters
//
// The same rules are applied to the NFKC normalised form of the name, so
// compatibility look-alikes such as U+FF0F (fullwidth solidus) or U+2025
// (two dot leader) are rejected as well.
//
// Returned errors wrap ErrInvalidFilename.
func ValidateFilename(filename string) error {
	if err := checkFilename(filename); err != nil {
		return err
	}

	if normalized := norm.NFKC.String(filename); normalized != filename {
		if err := checkFilename(normalized); err != nil {
			return fmt.Errorf("%w (after unicode normalization of %q)", err, filename)
		}
	}

	return nil
}

func checkFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("%w: filename cannot be empty", ErrInvalidFilename)
	}

	if i := strings.IndexAny(filename, invalidFilenameChars); i >= 0 {
		return fmt.Errorf("%w: filename contains invalid character: %c", ErrInvalidFilename, filename[i])
	}

	// Path traversal guard
	if strings.Contains(filename, "..") {
		return fmt.Errorf("%w: filename cannot contain '..'", ErrInvalidFilename)
	}

	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: filename contains control characters", ErrInvalidFilename)
		}
	}

	upper := strings.ToUpper(filename)
	for _, reserved := range reservedNames {
		if upper == reserved || strings.HasPrefix(upper, reserved+".") {
			return fmt.Errorf("%w: filename is reserved: %s", ErrInvalidFilename, filename)
		}
	}

	return nil
}

// WithMarkdownExt returns filename with the .md extension appended when missing.
func WithMarkdownExt(filename string) string {
	if strings.HasSuffix(filename, MarkdownExt) {
		return filename
	}
	return filename + MarkdownExt
}
