// Package logging provides structured logging for notesd.
//
// The package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Automatic context field injection (tenant, session, request)
//   - A runtime-adjustable level (AtomicLevel) backing the
//     logging/getLevel and logging/setLevel protocol methods
//
// Create logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx = logging.WithSessionID(ctx, "sess_123")
//	logger.Info(ctx, "note added", zap.String("logical_key", key))
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
package logging
