package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newBufferedLogger builds a logger from the production configuration that
// writes to buf instead of stdout
func newBufferedLogger(buf *bytes.Buffer) *zap.Logger {
	config := Config("production")
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(config.EncoderConfig),
		zapcore.AddSync(buf),
		zapcore.DebugLevel,
	)

	fields := make([]zap.Field, 0, len(config.InitialFields))
	for k, v := range config.InitialFields {
		fields = append(fields, zap.Any(k, v))
	}
	return zap.New(core).With(fields...)
}

// Property: production entries are single JSON objects carrying level,
// timestamp, message and the service name
func TestProperty_LogsAreStructured(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("all log entries are in structured JSON format", prop.ForAll(
		func(message string, level string) bool {
			var buf bytes.Buffer
			logger := newBufferedLogger(&buf)

			switch level {
			case "debug":
				logger.Debug(message, zap.String("draft_id", "d1"))
			case "warn":
				logger.Warn(message, zap.String("draft_id", "d1"))
			case "error":
				logger.Error(message, zap.String("draft_id", "d1"))
			default:
				logger.Info(message, zap.String("draft_id", "d1"))
			}
			_ = logger.Sync()

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Logf("FAIL: not json: %q", buf.String())
				return false
			}

			for _, key := range []string{"level", "timestamp", "msg", "service", "draft_id"} {
				if _, ok := entry[key]; !ok {
					t.Logf("FAIL: missing %s in %v", key, entry)
					return false
				}
			}
			return entry["msg"] == message && entry["service"] == ServiceName
		},
		gen.AlphaString(),
		gen.OneConstOf("debug", "info", "warn", "error"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestConfigByEnvironment(t *testing.T) {
	prod := Config("production")
	assert.Equal(t, "json", prod.Encoding)
	assert.Equal(t, []string{"stdout"}, prod.OutputPaths)

	dev := Config("development")
	assert.Equal(t, "console", dev.Encoding)
	assert.True(t, dev.Development)
}

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		logger, err := New(env)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}
}
