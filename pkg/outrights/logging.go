package outrights

import (
	"io"

	"github.com/sirupsen/logrus"
)

var discardLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}()

func loggerOrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return discardLogger
	}
	return l
}
