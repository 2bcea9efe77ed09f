package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nita-portal/nita/internal/logger"
)

func restoreGlobals(t *testing.T) {
	t.Helper()

	previous, previousLevel := log.Logger, zerolog.GlobalLevel()

	t.Cleanup(func() {
		log.Logger = previous
		zerolog.SetGlobalLevel(previousLevel)
	})
}

func TestInitRejectsIncompleteConfig(t *testing.T) {
	restoreGlobals(t)

	tests := map[string]struct {
		cfg  logger.Log
		want error
	}{
		"no service name": {logger.Log{LogLevel: "info", AppName: "nita"}, logger.ErrServiceNameIsEmpty},
		"no app name":     {logger.Log{LogLevel: "info", ServiceName: "nita-api"}, logger.ErrAppNameIsEmpty},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, logger.Init(tt.cfg), tt.want)
		})
	}

	require.Error(t, logger.Init(logger.Log{LogLevel: "loud", AppName: "nita", ServiceName: "nita-api"}))
}

func TestInitFileWritersSplitByLevel(t *testing.T) {
	restoreGlobals(t)

	dir := filepath.Join(t.TempDir(), "log")

	require.NoError(t, logger.Init(logger.Log{
		LogLevel:    "trace",
		AppName:     "nita",
		ServiceName: "nita-api",
		File: logger.LogFile{
			Enabled:  true,
			Path:     dir,
			InfoLog:  "info.log",
			ErrorLog: "error.log",
			WarnLog:  "warn.log",
			TraceLog: "trace.log",
		},
	}))

	log.Info().Str("user", "alice").Msg("login succeeded")
	log.Warn().Msg("directory slow")
	log.Error().Msg("directory unreachable")
	log.Trace().Msg("token resolved")

	for file, want := range map[string]string{
		"info.log":  "login succeeded",
		"warn.log":  "directory slow",
		"error.log": "directory unreachable",
		"trace.log": "token resolved",
	} {
		b, err := os.ReadFile(filepath.Join(dir, file))
		require.NoError(t, err, file)

		lines := strings.Split(strings.TrimSpace(string(b)), "\n")
		require.Len(t, lines, 1, file)

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, want, entry["message"])
		assert.Equal(t, "nita", entry["app"])
	}
}

func TestLevelWriter(t *testing.T) {
	var info, errs, warn, trace bytes.Buffer

	w := &logger.LevelWriter{InfoWriter: &info, ErrorWriter: &errs, WarnWriter: &warn, TraceWriter: &trace}

	for _, l := range []zerolog.Level{
		zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel,
		zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.TraceLevel, zerolog.Disabled,
	} {
		_, err := w.WriteLevel(l, []byte(l.String()+"\n"))
		require.NoError(t, err)
	}

	assert.Equal(t, "debug\ninfo\n", info.String())
	assert.Equal(t, "warn\n", warn.String())
	assert.Equal(t, "error\nfatal\n", errs.String())
	assert.Equal(t, "trace\n", trace.String())
}
