package stdlogger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/nita-portal/nita/internal/logger/adapter/stdlogger"
)

func capture(t *testing.T, level zerolog.Level) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer

	previous, previousLevel := log.Logger, zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(level)

	t.Cleanup(func() {
		log.Logger = previous
		zerolog.SetGlobalLevel(previousLevel)
	})

	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any

	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}

		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &m), l)
		out = append(out, m)
	}

	return out
}

func TestLevels(t *testing.T) {
	buf := capture(t, zerolog.InfoLevel)

	l := stdlogger.New("ldap")
	l.Debugf("bind %s", "hidden")
	l.Infof("bind %s", "cn=reader")
	l.Warningf("retry %d", 2)
	l.Errorf("dial %s", "ldap.example.org")

	got := lines(t, buf)
	require.Len(t, got, 3)

	for i, want := range []string{"info", "warn", "error"} {
		assert.Equal(t, want, got[i]["level"])
		assert.Equal(t, "ldap", got[i]["component"])
	}

	assert.Equal(t, "bind cn=reader", got[0]["message"])
}

func TestPrintfRaisesSlowQueriesAndErrors(t *testing.T) {
	buf := capture(t, zerolog.DebugLevel)

	l := stdlogger.New()
	l.Printf("%s [%.3fms] %s", "SLOW SQL >= 200ms", 250.0, "SELECT * FROM services")
	l.Printf("record not found error %s", "users")
	l.Printf("[%.3fms] %s", 0.5, "SELECT 1")

	got := lines(t, buf)
	require.Len(t, got, 3)
	assert.Equal(t, "warn", got[0]["level"])
	assert.Equal(t, "warn", got[1]["level"])
	assert.Equal(t, "debug", got[2]["level"])
	assert.NotContains(t, got[2], "component")
}

func TestGormWriter(t *testing.T) {
	buf := capture(t, zerolog.DebugLevel)

	var w logger.Writer = stdlogger.New("gorm")

	gl := logger.New(w, logger.Config{LogLevel: logger.Info, Colorful: false})
	gl.Info(t.Context(), "migrated %d tables", 8)

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "gorm", got[0]["component"])
	assert.Contains(t, got[0]["message"], "migrated 8 tables")
}
