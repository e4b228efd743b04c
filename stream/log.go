package stream

import (
	"log"
	"os"

	"go.uber.org/zap"
)

type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

type stdLog struct {
	logger *log.Logger
}

var _ Logger = (*stdLog)(nil)

func (s *stdLog) Infof(format string, v ...interface{}) {
	// NOTE: there is no concept of levels in the stdlib log package
	// For less noise, this default implementation will not print any non-error messages
	// To see these use NewZapLogger or write your own implementation
}

func (s *stdLog) Warnf(format string, v ...interface{}) {
	// NOTE: there is no concept of levels in the stdlib log package
	// For less noise, this default implementation will not print any non-error messages
	// To see these use NewZapLogger or write your own implementation
}

func (s *stdLog) Errorf(format string, v ...interface{}) {
	s.logger.Printf(format, v...)
}

// DefaultLogger returns a quiet stderr logger that only prints errors.
func DefaultLogger() Logger {
	return &stdLog{logger: log.New(os.Stderr, "", log.LstdFlags)}
}

type zapLog struct {
	s *zap.SugaredLogger
}

var _ Logger = (*zapLog)(nil)

// NewZapLogger adapts a zap sugared logger to the Logger interface.
func NewZapLogger(s *zap.SugaredLogger) Logger {
	return &zapLog{s: s}
}

func (l *zapLog) Infof(format string, v ...interface{}) {
	l.s.Infof(format, v...)
}

func (l *zapLog) Warnf(format string, v ...interface{}) {
	l.s.Warnf(format, v...)
}

func (l *zapLog) Errorf(format string, v ...interface{}) {
	l.s.Errorf(format, v...)
}
