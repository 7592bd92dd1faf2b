package logging

import (
	"testing"
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newTestEncoder(t *testing.T) *RedactingEncoder {
	t.Helper()
	base := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	enc, err := NewRedactingEncoder(base, NewDefaultConfig().Redaction)
	require.NoError(t, err)
	return enc
}

func encode(t *testing.T, enc zapcore.Encoder, msg string, fields ...zapcore.Field) string {
	t.Helper()
	buf, err := enc.EncodeEntry(zapcore.Entry{Level: zapcore.InfoLevel, Time: time.Unix(0, 0), Message: msg}, fields)
	require.NoError(t, err)
	defer buf.Free()
	return buf.String()
}

func TestRedactingEncoder_SensitiveKeys(t *testing.T) {
	enc := newTestEncoder(t)

	out := encode(t, enc, "naver request",
		zap.String("X-Naver-Client-Secret", "naver-secret-value"),
		zap.String("client_secret", "other-secret"),
		zap.Any("token", map[string]string{"v": "nested"}),
		zap.String("query", "삼성전자 실적"),
	)

	assert.NotContains(t, out, "naver-secret-value")
	assert.NotContains(t, out, "other-secret")
	assert.NotContains(t, out, "nested")
	assert.Contains(t, out, "삼성전자 실적")
}

func TestRedactingEncoder_ValuePatterns(t *testing.T) {
	enc := newTestEncoder(t)

	out := encode(t, enc, "auth Bearer abc123 failed",
		zap.String("detail", "key sk-ABCDEFGHIJKLMNOPQRSTUV rejected"),
	)

	assert.NotContains(t, out, "abc123")
	assert.NotContains(t, out, "sk-ABCDEFGHIJKLMNOPQRSTUV")
	assert.Contains(t, out, "rejected")
}

func TestRedactingEncoder_WithFields(t *testing.T) {
	enc := newTestEncoder(t)
	child := enc.Clone()
	child.AddString("api_key", "sk-live-secret")

	out := encode(t, child, "with fields")

	assert.NotContains(t, out, "sk-live-secret")
	assert.Contains(t, out, "[REDACTED]")
}

func TestRedactingEncoder_Disabled(t *testing.T) {
	base := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	enc, err := NewRedactingEncoder(base, RedactionConfig{Enabled: false})
	require.NoError(t, err)

	out := encode(t, enc, "plain", zap.String("api_key", "visible"))
	assert.Contains(t, out, "visible")
}

func TestNewRedactingEncoder_InvalidPattern(t *testing.T) {
	base := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	_, err := NewRedactingEncoder(base, RedactionConfig{Enabled: true, Patterns: []string{"("}})
	require.Error(t, err)
}

func TestSecretField(t *testing.T) {
	f := Secret("openai.api_key", config.Secret("sk-123456"))
	assert.Equal(t, "[REDACTED:9]", f.String)

	f = RedactedString("naver.client_secret", "")
	assert.Equal(t, "[REDACTED:0]", f.String)
}
