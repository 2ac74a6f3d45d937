package reminders

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type cronLogger struct {
	l *zap.SugaredLogger
}

// CronLogger adapts a zap logger to cron's logger interface. Cron's info
// lines are per-tick noise so they go to debug.
func CronLogger(logger *zap.Logger) cron.Logger {
	return cronLogger{l: logger.Sugar()}
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
