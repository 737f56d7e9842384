package analytics

import (
	"sort"
	"time"
)

// Sample is one raw record projected onto a series key and value.
type Sample struct {
	Key   SeriesKey
	TS    time.Time
	Value float64
}

type bucket struct {
	start  time.Time
	sum    float64
	count  int
	min    float64
	max    float64
	last   float64
	lastTS time.Time
}

func (b *bucket) add(ts time.Time, value float64) {
	if b.count == 0 {
		b.min, b.max = value, value
	} else {
		if value < b.min {
			b.min = value
		}
		if value > b.max {
			b.max = value
		}
	}
	b.sum += value
	b.count++
	if !ts.Before(b.lastTS) {
		b.last = value
		b.lastTS = ts
	}
}

func (b *bucket) value(fn Func) float64 {
	switch fn {
	case FuncSum:
		return b.sum
	case FuncMin:
		return b.min
	case FuncMax:
		return b.max
	case FuncLast:
		return b.last
	default:
		return b.sum / float64(b.count)
	}
}

// Resample buckets samples per series key and combines each bucket with
// fn. locFor supplies the local calendar for daily buckets of a given
// key; it may be nil when the interval is sub-daily. Buckets with no
// samples are omitted. The result is ordered: series by key, points by
// timestamp. For a fixed input the output is identical across calls.
func Resample(samples []Sample, interval Interval, fn Func, locFor func(SeriesKey) *time.Location) []Series {
	if interval == IntervalRaw {
		return rawSeries(samples)
	}

	type seriesBuckets struct {
		key     SeriesKey
		loc     *time.Location
		buckets map[time.Time]*bucket
	}
	grouped := make(map[string]*seriesBuckets)

	for _, sample := range samples {
		id := sample.Key.sortKey()
		group, ok := grouped[id]
		if !ok {
			group = &seriesBuckets{key: sample.Key, buckets: make(map[time.Time]*bucket)}
			if interval == IntervalDaily && locFor != nil {
				group.loc = locFor(sample.Key)
			}
			grouped[id] = group
		}
		start := BucketStart(sample.TS, interval, group.loc)
		b, ok := group.buckets[start]
		if !ok {
			b = &bucket{start: start}
			group.buckets[start] = b
		}
		b.add(sample.TS, sample.Value)
	}

	out := make([]Series, 0, len(grouped))
	for _, group := range grouped {
		points := make([]Point, 0, len(group.buckets))
		for _, b := range group.buckets {
			points = append(points, Point{TS: b.start, Value: b.value(fn)})
		}
		sort.Slice(points, func(i, j int) bool { return points[i].TS.Before(points[j].TS) })
		out = append(out, Series{Key: group.key, Points: points})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.compare(out[j].Key) < 0 })
	return out
}

func rawSeries(samples []Sample) []Series {
	grouped := make(map[string]*Series)
	for _, sample := range samples {
		id := sample.Key.sortKey()
		series, ok := grouped[id]
		if !ok {
			series = &Series{Key: sample.Key}
			grouped[id] = series
		}
		series.Points = append(series.Points, Point{TS: sample.TS.UTC(), Value: sample.Value})
	}

	out := make([]Series, 0, len(grouped))
	for _, series := range grouped {
		sort.Slice(series.Points, func(i, j int) bool { return series.Points[i].TS.Before(series.Points[j].TS) })
		out = append(out, *series)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.compare(out[j].Key) < 0 })
	return out
}
