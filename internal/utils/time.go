package utils

import (
	"time"

	"github.com/araddon/dateparse"
)

func TimeParser(datestr string) (time.Time, error) {
	t, err := dateparse.ParseIn(datestr, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ParseQueryTime parses an optional range. A missing end is now and a
// missing start is end minus defaultRange.
func ParseQueryTime(startstr, endstr string, now time.Time, defaultRange time.Duration) (time.Time, time.Time, error) {
	var (
		end = now
		err error
	)
	if endstr != "" {
		if end, err = TimeParser(endstr); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	start := end.Add(-defaultRange)
	if startstr != "" {
		if start, err = TimeParser(startstr); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return start, end, nil
}
