package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"Console to stderr", Config{Level: "warn", Format: "console", Output: "stderr"}, false},
		{"JSON to stdout", Config{Level: "info", Format: "json", Output: "stdout"}, false},
		{"Bad level", Config{Level: "loud", Format: "json"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log.Logger)
		})
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textrules.log")
	log, err := New(Config{
		Level:  "debug",
		Format: "json",
		Output: "stderr",
		File:   &FileConfig{Enabled: true, Path: path},
	})
	require.NoError(t, err)

	log.WithComponent("engine").WithRequestID("req-1").WithAction("tidy").Info("Action applied", zap.Int("rules", 2))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, `"component":"engine"`)
	assert.Contains(t, line, `"request_id":"req-1"`)
	assert.Contains(t, line, `"action":"tidy"`)
	assert.Contains(t, line, `"rules":2`)
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().WithComponent("x").Error("ignored")
	})
}
