package sanitize

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxDocumentIDLength bounds document ids used as store keys.
const MaxDocumentIDLength = 128

var (
	// ErrEmptyPath is returned for a blank path.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrPathTraversal is returned when a path leaves the allowed root.
	ErrPathTraversal = errors.New("path escapes allowed root")

	// ErrInvalidDocumentID is returned for ids that cannot be used as keys.
	ErrInvalidDocumentID = errors.New("invalid document id")
)

// Path cleans path and makes it absolute. With a non-empty allowedRoot the
// path must resolve inside it, following symlinks of existing files.
func Path(path, allowedRoot string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if allowedRoot == "" {
		return abs, nil
	}

	root, err := filepath.Abs(allowedRoot)
	if err != nil {
		return "", fmt.Errorf("resolve allowed root: %w", err)
	}
	if !within(root, abs) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, path)
	}

	// A symlink inside the root may still point outside it.
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs, nil
	}
	if realRoot, err := filepath.EvalSymlinks(root); err == nil {
		root = realRoot
	}
	if !within(root, resolved) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, path)
	}
	return abs, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// DocumentID rejects ids that are blank, too long, or contain path
// separators, ".." or control characters.
func DocumentID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty", ErrInvalidDocumentID)
	case utf8.RuneCountInString(id) > MaxDocumentIDLength:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidDocumentID, MaxDocumentIDLength)
	case strings.ContainsAny(id, `/\`) || strings.Contains(id, ".."):
		return fmt.Errorf("%w: contains path characters", ErrInvalidDocumentID)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: contains control characters", ErrInvalidDocumentID)
		}
	}
	return nil
}
