package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/interestconnect/realtime/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// zerologAdapter sends GORM logs through the context logger.
type zerologAdapter struct {
	level         logger.LogLevel
	slowThreshold time.Duration
}

// NewLogger returns a gorm logger backed by pkg/log.
func NewLogger(slowThreshold time.Duration) logger.Interface {
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}
	return &zerologAdapter{level: logger.Warn, slowThreshold: slowThreshold}
}

func (a *zerologAdapter) LogMode(level logger.LogLevel) logger.Interface {
	clone := *a
	clone.level = level
	return &clone
}

func (a *zerologAdapter) Info(ctx context.Context, msg string, args ...interface{}) {
	if a.level >= logger.Info {
		l := log.Ctx(ctx)
		l.Info().Msg(fmt.Sprintf(msg, args...))
	}
}

func (a *zerologAdapter) Warn(ctx context.Context, msg string, args ...interface{}) {
	if a.level >= logger.Warn {
		l := log.Ctx(ctx)
		l.Warn().Msg(fmt.Sprintf(msg, args...))
	}
}

func (a *zerologAdapter) Error(ctx context.Context, msg string, args ...interface{}) {
	if a.level >= logger.Error {
		l := log.Ctx(ctx)
		l.Error().Msg(fmt.Sprintf(msg, args...))
	}
}

func (a *zerologAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if a.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	l := log.Ctx(ctx)

	switch {
	case err != nil && a.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.Error().Err(err).Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("query failed")
	case elapsed > a.slowThreshold && a.level >= logger.Warn:
		sql, rows := fc()
		l.Warn().Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("slow query")
	case a.level >= logger.Info:
		sql, rows := fc()
		l.Debug().Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("query")
	}
}
