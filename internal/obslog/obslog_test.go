package obslog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(buf *bytes.Buffer, mask int) *Logger {
	h := slog.NewTextHandler(buf, nil)
	return &Logger{slog: slog.New(h), logMask: mask}
}

func TestALOGGatedByMask(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, MaskAlert)
	l.ALOG(context.Background(), "TRADE1", "slot %d left at zero: %v", 0, "boom")
	assert.Contains(t, buf.String(), "TRADE1")
	assert.Contains(t, buf.String(), "boom")
}

func TestALOGSuppressedWhenAlertMaskOff(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, MaskError) // alert bit not set
	l.ALOG(context.Background(), "TRADE1", "should not appear")
	assert.Empty(t, buf.String())
}
