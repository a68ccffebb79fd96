package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestInit_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "copybot.log")
	require.NoError(t, Init(Config{Level: "debug", OutputFile: path}))
	defer func() {
		_ = Close()
		_ = InitDefault()
	}()

	require.Equal(t, logrus.DebugLevel, Logger.GetLevel())
	logrus.WithField("component", "test").Info("hello from component")
	Debugf("debug %d", 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "hello from component"))
	require.True(t, strings.Contains(string(data), "component=test"))
	require.True(t, strings.Contains(string(data), "debug 1"))
}

func TestInit_BadLevelFallsBackToInfo(t *testing.T) {
	require.NoError(t, Init(Config{Level: "loud"}))
	require.Equal(t, logrus.InfoLevel, Logger.GetLevel())
}
