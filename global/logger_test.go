package global

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogLevelFromFlag(t *testing.T) {
	require.True(t, logLevelFromFlag("debug").Enabled(zap.DebugLevel))
	require.False(t, logLevelFromFlag("warning").Enabled(zap.InfoLevel))
	require.True(t, logLevelFromFlag("error").Enabled(zap.ErrorLevel))
	require.True(t, logLevelFromFlag("bogus").Enabled(zap.InfoLevel))
	require.False(t, logLevelFromFlag("bogus").Enabled(zap.DebugLevel))
}

func TestSetupLogFileCore(t *testing.T) {
	dir := t.TempDir()
	l := &loggerSetting{logLevel: "info", logDir: dir}
	core, err := l.setupLogFileCore(time.Now())
	require.NoError(t, err)

	lg := zap.New(core)
	lg.Info("hello", zap.String("k", "v"))
	require.NoError(t, lg.Sync())
}
