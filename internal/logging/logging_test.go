package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/taskclient/internal/logging"
	"github.com/nhle/taskclient/internal/model"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "client.log")

	logger, err := logging.New(model.LogConfig{Level: "debug", File: path}, logging.ToFile)
	require.NoError(t, err)

	logger.Debug("api request", zap.String("op", "list tasks"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"op":"list tasks"`)
}

func TestNew_RespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")

	logger, err := logging.New(model.LogConfig{Level: "warn", File: path}, logging.ToFile)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestNew_NoFileIsNop(t *testing.T) {
	logger, err := logging.New(model.LogConfig{Level: "info"}, logging.ToFile)
	require.NoError(t, err)
	assert.Equal(t, zap.NewNop().Core().Enabled(zap.ErrorLevel), logger.Core().Enabled(zap.ErrorLevel))
}

func TestNew_BadLevel(t *testing.T) {
	_, err := logging.New(model.LogConfig{Level: "loud"}, logging.ToStderr)
	assert.Error(t, err)
}

func TestInstall_RestoresGlobal(t *testing.T) {
	before := zap.L()
	restore := logging.Install(zap.NewExample())
	assert.NotSame(t, before, zap.L())
	restore()
	assert.Same(t, before, zap.L())
}
