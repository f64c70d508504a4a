package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name          string
		logLevel      string
		logFormat     string
		isDev         bool
		expectedLevel logrus.Level
		expectJSON    bool
	}{
		{
			name:          "production defaults",
			expectedLevel: logrus.InfoLevel,
			expectJSON:    true,
		},
		{
			name:          "development defaults",
			isDev:         true,
			expectedLevel: logrus.DebugLevel,
			expectJSON:    false,
		},
		{
			name:          "development with json format",
			logLevel:      "warn",
			logFormat:     "json",
			isDev:         true,
			expectedLevel: logrus.WarnLevel,
			expectJSON:    true,
		},
		{
			name:          "invalid level defaults to info",
			logLevel:      "loud",
			isDev:         true,
			expectedLevel: logrus.InfoLevel,
			expectJSON:    false,
		},
		{
			name:          "case insensitive level",
			logLevel:      "ERROR",
			expectedLevel: logrus.ErrorLevel,
			expectJSON:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.logLevel)
			t.Setenv("LOG_FORMAT", tt.logFormat)
			Logger = nil

			log := InitLogger("", tt.isDev)
			assert.Equal(t, tt.expectedLevel, log.GetLevel())

			_, isJSON := log.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.expectJSON, isJSON)
			assert.Same(t, log, GetLogger())
		})
	}
}

func TestWithRun(t *testing.T) {
	Logger = nil
	log := InitLogger("debug", false)
	var buf bytes.Buffer
	log.SetOutput(&buf)

	WithRun("run-123", "ENG1").Info("simulation stored")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-123", entry["run_id"])
	assert.Equal(t, "ENG1", entry["league"])
	assert.Equal(t, "simulation stored", entry["msg"])
	assert.Equal(t, "info", entry["level"])
}

func TestWithHTTPContext(t *testing.T) {
	Logger = nil
	log := InitLogger("info", false)
	var buf bytes.Buffer
	log.SetOutput(&buf)

	WithHTTPContext("POST", "/api/v1/simulate", "req-1").Warn("slow request")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "POST", entry["http_method"])
	assert.Equal(t, "/api/v1/simulate", entry["http_path"])
	assert.Equal(t, "req-1", entry["request_id"])
}
