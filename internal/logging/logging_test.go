package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instrumenti.log")

	logger, closeLog, err := New(path)
	require.NoError(t, err)

	logger.Info("instrument created")
	logger.Debug("not recorded")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "instrument created")
	assert.NotContains(t, string(data), "not recorded")
}

func TestNewRejectsBadPath(t *testing.T) {
	_, _, err := New(filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}
