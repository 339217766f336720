package tracelog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapSink forwards events to a zap logger. Cursor moves log at debug
// level, everything else at info.
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink wraps log; nil selects a no-op logger.
func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapSink{log: log}
}

// NewZapDevelopment builds a console logger writing to stderr.
func NewZapDevelopment() (*ZapSink, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapSink(log), nil
}

// Write implements Sink.
func (z *ZapSink) Write(ev *Event) {
	fields := make([]zap.Field, 0, 10)
	fields = append(fields,
		zap.Uint64("seq", ev.Seq),
		zap.Stringer("kind", ev.Kind),
		zap.Stringer("level", ev.Level),
	)
	if ev.Span != 0 {
		fields = append(fields, zap.Uint64("span", ev.Span))
	}
	if ev.Parent != 0 {
		fields = append(fields, zap.Uint64("parent", ev.Parent))
	}
	if ev.Command != "" {
		fields = append(fields, zap.String("command", ev.Command))
	}
	if ev.Detail != "" {
		fields = append(fields, zap.String("detail", ev.Detail))
	}
	if ev.Kind == KindEnd {
		fields = append(fields, zap.Duration("elapsed", ev.Elapsed))
	}
	if c := ev.Cursor; c != nil {
		fields = append(fields, zap.Int("pos", c.Pos), zap.Int("total", c.Total))
		if c.Frame != "" {
			fields = append(fields, zap.String("frame", c.Frame))
		}
	}

	if ev.Level == LevelStep {
		z.log.Debug(ev.Name, fields...)
		return
	}
	z.log.Info(ev.Name, fields...)
}

// Close syncs the logger.
func (z *ZapSink) Close() error {
	// Sync on a terminal returns EINVAL on some platforms.
	_ = z.log.Sync() //nolint:errcheck
	return nil
}
