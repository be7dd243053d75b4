package logger_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/forge/internal/adapters/logger"
)

func TestPrettyHandler_Attributes(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	log := slog.New(logger.NewPrettyHandler(buf, nil)).With("attempt", 2)

	log.Warn("could not cache archive",
		"url", "http://repo.test/a/1.0.0/a.zip",
		"reason", "disk full",
		"package", "a@1.0.0",
	)
	log.Debug("hidden")

	assert.Equal(t,
		"! could not cache archive package=a@1.0.0 url=http://repo.test/a/1.0.0/a.zip attempt=2 reason=\"disk full\"\n",
		buf.String(),
	)
}

func TestPrettyHandler_Group(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	log := slog.New(logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})).WithGroup("cache")

	log.Debug("hit", "digest", "abc")
	log.Error("first\nsecond")

	assert.Equal(t, "hit cache.digest=abc\n✗ first\nsecond\n", buf.String())
}
