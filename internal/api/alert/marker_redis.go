package alert

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

var errMarkerChanged = errors.New("cycle run marker changed")

type redisMarkerStore struct {
	client *redis.Client
	key    string
}

var _ MarkerStore = (*redisMarkerStore)(nil)

func NewRedisMarkerStore(client *redis.Client, key string) MarkerStore {
	return &redisMarkerStore{
		client: client,
		key:    key,
	}
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *redisMarkerStore) Load(ctx context.Context) (RunMarker, error) {
	return readMarker(ctx, s.client, s.key)
}

// CompareAndSwap uses WATCH/MULTI: the write is discarded by Redis when the
// key changes between the read and EXEC.
func (s *redisMarkerStore) CompareAndSwap(ctx context.Context, old, new RunMarker) (bool, error) {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readMarker(ctx, tx, s.key)
		if err != nil {
			return err
		}
		if !current.Equal(old) {
			return errMarkerChanged
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, encodeMarker(new), 0)
			return nil
		})
		return err
	}, s.key)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errMarkerChanged), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, err
	}
}

func readMarker(ctx context.Context, getter stringGetter, key string) (RunMarker, error) {
	val, err := getter.Get(ctx, key).Result()
	if err == redis.Nil {
		return RunMarker{}, nil
	}
	if err != nil {
		return RunMarker{}, fmt.Errorf("redis get marker failed: %w", err)
	}
	return decodeMarker(val)
}

// markers are stored as "<last_run unix nanos>:<lease_until unix nanos>",
// zero standing for unset
func encodeMarker(m RunMarker) string {
	return unixNano(m.LastRun) + ":" + unixNano(m.LeaseUntil)
}

func decodeMarker(val string) (RunMarker, error) {
	parts := strings.Split(val, ":")
	if len(parts) != 2 {
		return RunMarker{}, fmt.Errorf("malformed cycle run marker %q", val)
	}
	lastRun, err := fromUnixNano(parts[0])
	if err != nil {
		return RunMarker{}, err
	}
	leaseUntil, err := fromUnixNano(parts[1])
	if err != nil {
		return RunMarker{}, err
	}
	return RunMarker{LastRun: lastRun, LeaseUntil: leaseUntil}, nil
}

func unixNano(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.UnixNano(), 10)
}

func fromUnixNano(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed cycle run marker timestamp %q: %w", s, err)
	}
	if n == 0 {
		return time.Time{}, nil
	}
	return time.Unix(0, n).UTC(), nil
}
