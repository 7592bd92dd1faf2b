// Package logging provides structured logging for dartrag.
//
// Logger wraps Zap with:
//   - a Trace level below Debug for per-chunk detail
//   - context field injection (trace_id, request.id, document.id, task.id)
//   - encoder-level redaction of API keys and Naver credentials
//   - level-aware sampling where errors are never sampled
//
// Usage:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithDocumentID(ctx, "20240315000123")
//	logger.Info(ctx, "indexing started", zap.Int("chunks", n))
//
// Most components take a *zap.Logger; pass logger.Underlying().
//
// Tests use NewTestLogger and its Assert helpers:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "search completed", zap.Int("results", 3))
//	tl.AssertLogged(t, zapcore.InfoLevel, "search completed")
package logging
