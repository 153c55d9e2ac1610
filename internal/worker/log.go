package worker

import (
	"time"

	machinerylog "github.com/RichardKnop/machinery/v1/log"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

// SetupTaskLogger routes machinery's own logging into an hourly rotated file
// next to the api-server log.
func SetupTaskLogger(path string, debug bool) error {
	writer, err := rotatelogs.New(
		path+".%Y%m%d%H",
		rotatelogs.WithLinkName(path),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationTime(time.Hour),
	)
	if err != nil {
		return err
	}

	l := logrus.New()
	l.SetOutput(writer)
	l.SetFormatter(&logrus.JSONFormatter{})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}

	machinerylog.Set(l)
	return nil
}
