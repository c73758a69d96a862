package logger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.Error(t, err)
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("x", String("k", "v"))
		l.Error("x", Error(errors.New("boom")))
		assert.Nil(t, l.With(String("k", "v")))
	})
}

func TestFieldKeyValues(t *testing.T) {
	k, v := Duration("took_ms", 1500*time.Millisecond).GetKeyValue()
	assert.Equal(t, "took_ms", k)
	assert.Equal(t, 1500, v)

	k, v = Strings("tickers", []string{"BP.L", "SHEL.L"}).GetKeyValue()
	assert.Equal(t, "tickers", k)
	assert.Equal(t, "BP.L, SHEL.L", v)

	_, v = Error(nil).GetKeyValue()
	assert.Nil(t, v)
}
