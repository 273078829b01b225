package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	t.Run("returns the embedded logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		ctx := WithLogger(context.Background(), logger)

		FromContext(ctx).Info("hello")

		assert.Same(t, logger, FromContext(ctx))
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("falls back to the default logger", func(t *testing.T) {
		assert.Same(t, slog.Default(), FromContext(context.Background()))
	})
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	child := With(ctx, "session", "s1")
	FromContext(child).Info("child")
	FromContext(ctx).Info("parent")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "session=s1")
	assert.NotContains(t, string(lines[1]), "session=s1")
}
