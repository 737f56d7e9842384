package analytics

import (
	"errors"
	"testing"
	"time"

	timeseries "gridpulse/internal/timeseries/domain"
)

func TestResample_HourlyAverage(t *testing.T) {
	base := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	key := SeriesKey{Zone: "NYCW", Market: timeseries.MarketDayAhead}
	samples := []Sample{
		{Key: key, TS: base, Value: 10},
		{Key: key, TS: base.Add(15 * time.Minute), Value: 20},
		{Key: key, TS: base.Add(30 * time.Minute), Value: 30},
		{Key: key, TS: base.Add(45 * time.Minute), Value: 40},
	}

	series := Resample(samples, IntervalHourly, FuncAvg, nil)
	if len(series) != 1 {
		t.Fatalf("expected 1 series, got %d", len(series))
	}
	if len(series[0].Points) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(series[0].Points))
	}
	point := series[0].Points[0]
	if !point.TS.Equal(base) {
		t.Fatalf("expected bucket start %s, got %s", base, point.TS)
	}
	if point.Value != 25 {
		t.Fatalf("expected average 25, got %v", point.Value)
	}
}

func TestResample_FuelMixSumPerFuelType(t *testing.T) {
	ts := time.Date(2025, 6, 10, 14, 5, 0, 0, time.UTC)
	samples := []Sample{
		{Key: SeriesKey{FuelType: "WND"}, TS: ts, Value: 200},
		{Key: SeriesKey{FuelType: "NG"}, TS: ts.Add(time.Minute), Value: 300},
	}

	series := Resample(samples, IntervalHourly, FuncSum, nil)
	if len(series) != 2 {
		t.Fatalf("expected per-fuel-type series, got %d", len(series))
	}
	byFuel := make(map[string]float64)
	for _, s := range series {
		if len(s.Points) != 1 {
			t.Fatalf("expected 1 bucket per series, got %d", len(s.Points))
		}
		byFuel[s.Key.FuelType] = s.Points[0].Value
	}
	if byFuel["NG"] != 300 || byFuel["WND"] != 200 {
		t.Fatalf("expected per-type sums 300/200, got %v", byFuel)
	}
}

func TestResample_EmptyBucketsOmitted(t *testing.T) {
	base := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	key := SeriesKey{Zone: "NYCW"}
	samples := []Sample{
		{Key: key, TS: base.Add(10 * time.Minute), Value: 100},
		{Key: key, TS: base.Add(2*time.Hour + 10*time.Minute), Value: 200},
	}

	series := Resample(samples, IntervalHourly, FuncAvg, nil)
	if len(series) != 1 {
		t.Fatalf("expected 1 series, got %d", len(series))
	}
	points := series[0].Points
	if len(points) != 2 {
		t.Fatalf("expected the empty hour to be omitted, got %d points", len(points))
	}
	if !points[0].TS.Equal(base) || !points[1].TS.Equal(base.Add(2*time.Hour)) {
		t.Fatalf("unexpected bucket starts: %s, %s", points[0].TS, points[1].TS)
	}
}

func TestResample_DailyUsesLocalCalendarDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 03:00 UTC on Jan 2 is still Jan 1 in New York.
	ts := time.Date(2025, 1, 2, 3, 0, 0, 0, time.UTC)
	key := SeriesKey{Zone: "NYCW"}

	series := Resample([]Sample{{Key: key, TS: ts, Value: 50}}, IntervalDaily, FuncAvg, func(SeriesKey) *time.Location { return loc })
	if len(series) != 1 || len(series[0].Points) != 1 {
		t.Fatalf("expected a single bucket, got %+v", series)
	}
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, loc).UTC()
	if got := series[0].Points[0].TS; !got.Equal(want) {
		t.Fatalf("expected local-midnight bucket %s, got %s", want, got)
	}
}

func TestResample_MinMaxLast(t *testing.T) {
	base := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	key := SeriesKey{Region: "NYC", Metric: "cloud_cover"}
	samples := []Sample{
		{Key: key, TS: base.Add(5 * time.Minute), Value: 80},
		{Key: key, TS: base.Add(25 * time.Minute), Value: 20},
		{Key: key, TS: base.Add(55 * time.Minute), Value: 60},
	}

	for _, tc := range []struct {
		fn   Func
		want float64
	}{
		{FuncMin, 20},
		{FuncMax, 80},
		{FuncLast, 60},
	} {
		series := Resample(samples, IntervalHourly, tc.fn, nil)
		if got := series[0].Points[0].Value; got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.fn, tc.want, got)
		}
	}
}

func TestResample_RawPassthroughOrdered(t *testing.T) {
	base := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	key := SeriesKey{Zone: "NYCW"}
	samples := []Sample{
		{Key: key, TS: base.Add(30 * time.Minute), Value: 2},
		{Key: key, TS: base, Value: 1},
	}

	series := Resample(samples, IntervalRaw, FuncAvg, nil)
	if len(series) != 1 || len(series[0].Points) != 2 {
		t.Fatalf("expected 2 raw points, got %+v", series)
	}
	if !series[0].Points[0].TS.Equal(base) {
		t.Fatal("expected raw points ordered by timestamp")
	}
}

func TestValidateFunc_RejectsSumOverPrice(t *testing.T) {
	err := ValidateFunc(timeseries.EntityPrice, FuncSum)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := ValidateFunc(timeseries.EntityFuelMix, FuncSum); err != nil {
		t.Fatalf("expected sum over fuel mix to pass, got %v", err)
	}
	if err := ValidateFunc(timeseries.EntityPrice, FuncAvg); err != nil {
		t.Fatalf("expected avg over price to pass, got %v", err)
	}
}

func TestParseIntervalAndFunc(t *testing.T) {
	if _, err := ParseInterval("weekly"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ParseFunc("median"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	interval, err := ParseInterval("15min")
	if err != nil || interval != Interval15Min {
		t.Fatalf("parse 15min: %v %v", interval, err)
	}
}
