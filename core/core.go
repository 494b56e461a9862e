package core

import "github.com/platewise/platewise/logging"

// loggerAdapter carries the run's logger through embedded composition.
// Constructing it with nil substitutes a NoOpLogger, so contexts built
// without a logger can still log unconditionally.
type loggerAdapter struct {
	logger logging.Logger
}

func newLoggerAdapter(l logging.Logger) *loggerAdapter {
	if l == nil {
		l = logging.NoOpLogger{}
	}
	return &loggerAdapter{logger: l}
}

// Logger returns the wrapped logger, never nil.
func (l *loggerAdapter) Logger() logging.Logger {
	return l.logger
}
