package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name:    "default config",
			cfg:     NewDefaultConfig(),
			wantErr: false,
		},
		{
			name: "console format",
			cfg: &Config{
				Level:  zapcore.DebugLevel,
				Format: "console",
			},
			wantErr: false,
		},
		{
			name: "invalid format",
			cfg: &Config{
				Level:  zapcore.InfoLevel,
				Format: "xml",
			},
			wantErr: true,
		},
		{
			name: "negative caller skip",
			cfg: &Config{
				Level:  zapcore.InfoLevel,
				Format: "json",
				Caller: CallerConfig{Enabled: true, Skip: -1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
		})
	}
}

func TestLogger_SetLevel(t *testing.T) {
	tl := NewTestLogger()

	tl.SetLevel(zapcore.WarnLevel)
	assert.Equal(t, zapcore.WarnLevel, tl.Level())
	assert.False(t, tl.Enabled(zapcore.InfoLevel))
	assert.True(t, tl.Enabled(zapcore.ErrorLevel))

	// Info is suppressed at warn level
	tl.Info(context.Background(), "suppressed")
	tl.AssertNotLogged(t, zapcore.InfoLevel, "suppressed")

	tl.SetLevel(zapcore.InfoLevel)
	tl.Info(context.Background(), "visible")
	tl.AssertLogged(t, zapcore.InfoLevel, "visible")
}

func TestLogger_SetLevelSharedWithChildren(t *testing.T) {
	tl := NewTestLogger()
	child := tl.Named("child").With(zap.String("component", "store"))

	tl.SetLevel(zapcore.ErrorLevel)
	assert.Equal(t, zapcore.ErrorLevel, child.Level())

	child.SetLevel(TraceLevel)
	assert.Equal(t, TraceLevel, tl.Level())
}

func TestLogger_Trace(t *testing.T) {
	tl := NewTestLogger()

	tl.Trace(context.Background(), "wire detail")
	tl.AssertLogged(t, TraceLevel, "wire detail")

	tl.Reset()
	tl.SetLevel(zapcore.DebugLevel)
	tl.Trace(context.Background(), "filtered")
	tl.AssertNotLogged(t, TraceLevel, "filtered")
}

func TestLogger_ContextFieldInjection(t *testing.T) {
	tl := NewTestLogger()

	ctx := WithTenant(context.Background(), "u1")
	ctx = WithSessionID(ctx, "sess_abc")
	tl.Info(ctx, "note added")

	tl.AssertField(t, "note added", "tenant", "u1")
	tl.AssertField(t, "note added", "session.id", "sess_abc")
}
