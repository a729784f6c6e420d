package logging

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// TraceLevel is a custom level below Debug for ultra-verbose logging.
// Value: -2 (Debug is -1, Info is 0)
//
// Use for:
//   - Function entry/exit
//   - Wire protocol data
//   - Almost always filtered in production
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a string into a zapcore.Level, supporting "trace".
func LevelFromString(level string) (zapcore.Level, error) {
	if level == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// LevelToString renders a zapcore.Level as its config string, including
// the custom "trace" level.
func LevelToString(level zapcore.Level) string {
	if level == TraceLevel {
		return "trace"
	}
	return level.String()
}

// ValidLevels lists the level names accepted by the logging/setLevel
// protocol method, most verbose first.
func ValidLevels() []string {
	return []string{"trace", "debug", "info", "warn", "error"}
}

// ValidateLevelName reports whether name is an accepted level string.
func ValidateLevelName(name string) error {
	for _, v := range ValidLevels() {
		if name == v {
			return nil
		}
	}
	return fmt.Errorf("unknown log level %q (valid: %v)", name, ValidLevels())
}
