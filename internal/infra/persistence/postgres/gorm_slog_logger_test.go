package postgres

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"warden/config"
	deliverycontext "warden/internal/delivery/context"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newBufferedLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func sqlFn() (string, int64) {
	return "SELECT 1", 1
}

func TestGormSlogLogger_Trace(t *testing.T) {
	tests := []struct {
		name    string
		debug   bool
		elapsed time.Duration
		err     error
		want    string
	}{
		{name: "failure", err: errors.New("boom"), want: "GORM query failed"},
		{name: "record not found is silent", err: gorm.ErrRecordNotFound},
		{name: "slow", elapsed: time.Second, want: "GORM slow query"},
		{name: "fast is silent without debug"},
		{name: "fast with debug", debug: true, want: "GORM query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := &config.Config{}
			cfg.Env.Debug = tt.debug
			l := newGormSlogLogger(newBufferedLogger(&buf), cfg)

			l.Trace(context.Background(), time.Now().Add(-tt.elapsed), sqlFn, tt.err)

			if tt.want == "" {
				assert.Empty(t, buf.String())

				return
			}
			assert.Contains(t, buf.String(), `"msg":"`+tt.want+`"`)
		})
	}
}

func TestGormSlogLogger_UsesRequestLogger(t *testing.T) {
	var base, scoped bytes.Buffer
	l := newGormSlogLogger(newBufferedLogger(&base), &config.Config{})

	reqLogger := newBufferedLogger(&scoped).With(slog.String("request_id", "req-1"))
	ctx := deliverycontext.WithLogger(context.Background(), reqLogger)

	l.Trace(ctx, time.Now(), sqlFn, errors.New("boom"))

	assert.Empty(t, base.String())
	assert.Contains(t, scoped.String(), `"request_id":"req-1"`)
}
