package analytics

import "time"

// Interval is a target resampling resolution.
type Interval string

const (
	// IntervalRaw returns stored granularity unmodified.
	IntervalRaw    Interval = "raw"
	Interval15Min  Interval = "15min"
	IntervalHourly Interval = "hourly"
	IntervalDaily  Interval = "daily"
)

// ParseInterval validates an interval string.
func ParseInterval(value string) (Interval, error) {
	switch Interval(value) {
	case IntervalRaw, Interval15Min, IntervalHourly, IntervalDaily:
		return Interval(value), nil
	default:
		return "", BadIntervalError(value)
	}
}

// BucketStart floors ts to the start of its containing bucket. Sub-daily
// buckets are UTC-aligned; daily buckets start at local midnight in loc
// because upstream daily reporting follows the zone/region calendar day.
func BucketStart(ts time.Time, interval Interval, loc *time.Location) time.Time {
	switch interval {
	case Interval15Min:
		return ts.UTC().Truncate(15 * time.Minute)
	case IntervalHourly:
		return ts.UTC().Truncate(time.Hour)
	case IntervalDaily:
		if loc == nil {
			loc = time.UTC
		}
		local := ts.In(loc)
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).UTC()
	default:
		return ts.UTC()
	}
}
