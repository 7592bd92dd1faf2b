package sanitize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath_NoRoot(t *testing.T) {
	got, err := Path("data/../report.txt", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "report.txt", filepath.Base(got))

	_, err = Path("  ", "")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestPath_Root(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "2024", "report.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(inside), 0o755))
	require.NoError(t, os.WriteFile(inside, []byte("x"), 0o600))

	got, err := Path(inside, root)
	require.NoError(t, err)
	assert.Equal(t, inside, got)

	_, err = Path(filepath.Join(root, "..", "etc", "passwd"), root)
	assert.ErrorIs(t, err, ErrPathTraversal)

	_, err = Path(filepath.Join(root, "missing.txt"), root)
	assert.NoError(t, err, "missing files are reported by the caller")
}

func TestPath_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))
	link := filepath.Join(root, "link.txt")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := Path(link, root)
	assert.ErrorIs(t, err, ErrPathTraversal)
}

func TestDocumentID(t *testing.T) {
	valid := []string{"20240315000123", "삼성전자-2024-사업보고서", "doc_1"}
	for _, id := range valid {
		assert.NoError(t, DocumentID(id), id)
	}

	invalid := []string{"", "   ", "a/b", `a\b`, "..", "doc\x00", strings.Repeat("가", MaxDocumentIDLength+1)}
	for _, id := range invalid {
		assert.ErrorIs(t, DocumentID(id), ErrInvalidDocumentID, "%q", id)
	}
}
