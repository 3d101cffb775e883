package logging

import (
	"github.com/btcsuite/btclog"
)

// teeLogger forwards each call to a console logger and a file logger. Either
// may be nil. Level and SetLevel act on the console side only; the file side
// stays at debug.
type teeLogger struct {
	console btclog.Logger
	file    btclog.Logger
}

var _ btclog.Logger = (*teeLogger)(nil)

func (l *teeLogger) each(fn func(btclog.Logger)) {
	if l.console != nil {
		fn(l.console)
	}
	if l.file != nil {
		fn(l.file)
	}
}

func (l *teeLogger) Tracef(format string, params ...interface{}) {
	l.each(func(s btclog.Logger) { s.Tracef(format, params...) })
}

func (l *teeLogger) Debugf(format string, params ...interface{}) {
	l.each(func(s btclog.Logger) { s.Debugf(format, params...) })
}

func (l *teeLogger) Infof(format string, params ...interface{}) {
	l.each(func(s btclog.Logger) { s.Infof(format, params...) })
}

func (l *teeLogger) Warnf(format string, params ...interface{}) {
	l.each(func(s btclog.Logger) { s.Warnf(format, params...) })
}

func (l *teeLogger) Errorf(format string, params ...interface{}) {
	l.each(func(s btclog.Logger) { s.Errorf(format, params...) })
}

func (l *teeLogger) Criticalf(format string, params ...interface{}) {
	l.each(func(s btclog.Logger) { s.Criticalf(format, params...) })
}

func (l *teeLogger) Trace(v ...interface{}) {
	l.each(func(s btclog.Logger) { s.Trace(v...) })
}

func (l *teeLogger) Debug(v ...interface{}) {
	l.each(func(s btclog.Logger) { s.Debug(v...) })
}

func (l *teeLogger) Info(v ...interface{}) {
	l.each(func(s btclog.Logger) { s.Info(v...) })
}

func (l *teeLogger) Warn(v ...interface{}) {
	l.each(func(s btclog.Logger) { s.Warn(v...) })
}

func (l *teeLogger) Error(v ...interface{}) {
	l.each(func(s btclog.Logger) { s.Error(v...) })
}

func (l *teeLogger) Critical(v ...interface{}) {
	l.each(func(s btclog.Logger) { s.Critical(v...) })
}

func (l *teeLogger) Level() btclog.Level {
	if l.console != nil {
		return l.console.Level()
	}
	return btclog.LevelOff
}

func (l *teeLogger) SetLevel(level btclog.Level) {
	if l.console != nil {
		l.console.SetLevel(level)
	}
}
