package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(4, &buf)

	l.Info("dropped")
	l.Warn("kept", "user_id", "u1")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
	assert.Contains(t, out, "user_id=u1")
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(0, &buf).With("component", "sync")

	l.Info("hello")

	assert.Contains(t, buf.String(), "component=sync")
}
