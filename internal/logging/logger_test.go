package logging

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
    cases := map[string]zapcore.Level{
        "debug": zapcore.DebugLevel,
        "info":  zapcore.InfoLevel,
        "warn":  zapcore.WarnLevel,
        "error": zapcore.ErrorLevel,
        "bogus": zapcore.InfoLevel,
    }
    for in, want := range cases {
        for _, format := range []string{"json", "console"} {
            log, err := New(in, format, "maturity")
            require.NoError(t, err)
            assert.True(t, log.Core().Enabled(want), "%s/%s", in, format)
            if want > zapcore.DebugLevel {
                assert.False(t, log.Core().Enabled(want-1), "%s/%s", in, format)
            }
        }
    }
}
