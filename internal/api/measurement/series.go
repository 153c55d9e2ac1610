package measurement

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fluidmeter-api-server/internal/api/common/query"
	"fluidmeter-api-server/internal/models"
)

// buildSeries sums readings per UTC hour or day. Input is oldest first, so
// buckets come out in time order.
func buildSeries(measurements []*models.Measurement, granularity query.Granularity, logger *zap.Logger) *Series {
	var (
		items = make([]SeriesItem, 0)
		sums  []decimal.Decimal
		index = make(map[time.Time]int)
	)

	for _, m := range measurements {
		value, err := m.Decimal()
		if err != nil {
			logger.Warn("skipping unparsable measurement",
				zap.String("id", m.ID),
				zap.String("value", m.Value))
			continue
		}

		period := truncate(m.RecordedAt, granularity)
		i, exist := index[period]
		if !exist {
			i = len(items)
			index[period] = i
			items = append(items, SeriesItem{Period: period})
			sums = append(sums, decimal.Zero)
		}
		sums[i] = sums[i].Add(value)
	}

	for i := range items {
		items[i].Value = sums[i].String()
	}
	return &Series{
		Granularity: granularity,
		Items:       items,
	}
}

func truncate(t time.Time, granularity query.Granularity) time.Time {
	t = t.UTC()
	if granularity == query.GranularityHour {
		return t.Truncate(time.Hour)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
