package reader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRead_PlainText(t *testing.T) {
	path := writeFile(t, "report.txt", []byte("I. 회사의 개요\r\n\r\n당사는 반도체를 제조합니다.\r\n"))

	doc, err := New(0).Read(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, FormatText, doc.Format)
	assert.Equal(t, "I. 회사의 개요\n\n당사는 반도체를 제조합니다.", doc.Text)
	assert.Contains(t, doc.MIME, "text/plain")
}

func TestRead_Markdown(t *testing.T) {
	path := writeFile(t, "report.md", []byte("# 사업의 내용\n\n| 구분 | 매출 |\n|---|---|\n| 2023 | 100 |\n"))

	doc, err := New(0).Read(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, FormatMarkdown, doc.Format)
	assert.Contains(t, doc.Text, "| 구분 | 매출 |")
}

func TestRead_HTMLConvertedToMarkdown(t *testing.T) {
	html := `<html><body><h1>재무에 관한 사항</h1><p>매출액은 <b>100억원</b>입니다.</p></body></html>`
	path := writeFile(t, "report.html", []byte(html))

	doc, err := New(0).Read(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, FormatHTML, doc.Format)
	assert.Contains(t, doc.Text, "# 재무에 관한 사항")
	assert.Contains(t, doc.Text, "**100억원**")
	assert.NotContains(t, doc.Text, "<p>")
}

func TestRead_EUCKR(t *testing.T) {
	encoded, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte("위험요인 검토"))
	require.NoError(t, err)

	text, err := decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "위험요인 검토", text)
}

func TestRead_NFCNormalization(t *testing.T) {
	decomposed := "\u1112\u1161\u11ab"
	path := writeFile(t, "nfd.txt", []byte(decomposed))

	doc, err := New(0).Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "한", doc.Text)
}

func TestRead_Errors(t *testing.T) {
	ctx := context.Background()
	r := New(0)

	_, err := r.Read(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = r.Read(ctx, filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Read(ctx, t.TempDir())
	assert.ErrorIs(t, err, ErrUnsupported)

	bin := writeFile(t, "blob.bin", []byte{0x00, 0x01, 0x02, 0x03, 0xff, 0x00, 0x10})
	_, err = r.Read(ctx, bin)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestRead_TooLarge(t *testing.T) {
	path := writeFile(t, "big.txt", []byte("0123456789"))

	_, err := New(5).Read(context.Background(), path)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestRead_CorruptPDF(t *testing.T) {
	path := writeFile(t, "broken.pdf", []byte("%PDF-1.4\nthis is not a real pdf body\n"))

	_, err := New(0).Read(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf")
}
