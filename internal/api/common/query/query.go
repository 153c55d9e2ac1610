package query

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"fluidmeter-api-server/internal/utils"
)

type Granularity string

const (
	GranularityHour Granularity = "hour"
	GranularityDay  Granularity = "day"

	defaultRange = 7 * 24 * time.Hour
)

// Query 파라미터들 parsing 하기 위해 사용함
type parseQuery struct {
	StartTime   string `query:"start,omitempty" json:"-"`
	EndTime     string `query:"end,omitempty" json:"-"`
	Granularity string `query:"granularity,omitempty" json:"-"`
}

type Query struct {
	ID          string
	MeterID     string
	StartTime   time.Time
	EndTime     time.Time
	Granularity Granularity
}

func (q parseQuery) ParseAndValidate(c *fiber.Ctx, now time.Time) (Query, error) {
	var (
		id, _   = c.Locals("requestid").(string)
		meterID = c.Params("id", "")
	)

	startTime, endTime, err := utils.ParseQueryTime(q.StartTime, q.EndTime, now, defaultRange)
	if err != nil {
		return Query{}, err
	}
	if startTime.After(endTime) {
		return Query{}, errors.New("the end time should be after the start time")
	}

	granularity := GranularityDay
	switch Granularity(q.Granularity) {
	case "", GranularityDay:
	case GranularityHour:
		granularity = GranularityHour
	default:
		return Query{}, errors.New("granularity must be one of hour, day")
	}

	return Query{
		ID:          id,
		MeterID:     meterID,
		StartTime:   startTime,
		EndTime:     endTime,
		Granularity: granularity,
	}, nil
}

func ParseAndValidate(c *fiber.Ctx) (Query, error) {
	query := &parseQuery{}
	if err := c.QueryParser(query); err != nil {
		return Query{}, err
	}
	return query.ParseAndValidate(c, time.Now().UTC())
}
