package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	timeseries "gridpulse/internal/timeseries/domain"
)

// FactStore is an in-memory timeseries.Store and timeseries.Query used in
// tests. Upserts take the write lock for the whole batch, so a concurrent
// scan sees either the pre-batch or post-batch value for every key.
type FactStore struct {
	mu      sync.RWMutex
	prices  map[string]timeseries.PriceRecord
	loads   map[string]timeseries.LoadRecord
	fuelMix map[string]timeseries.FuelMixRecord
	flows   map[string]timeseries.InterfaceFlowRecord
	weather map[string]timeseries.WeatherRecord

	// zone→ISO mapping for derived-grouping filters.
	zoneISO map[string]string
}

// NewFactStore constructs an empty store.
func NewFactStore() *FactStore {
	return &FactStore{
		prices:  make(map[string]timeseries.PriceRecord),
		loads:   make(map[string]timeseries.LoadRecord),
		fuelMix: make(map[string]timeseries.FuelMixRecord),
		flows:   make(map[string]timeseries.InterfaceFlowRecord),
		weather: make(map[string]timeseries.WeatherRecord),
		zoneISO: make(map[string]string),
	}
}

// SetZoneISO registers a zone→ISO mapping for ISORTO filters.
func (s *FactStore) SetZoneISO(zoneCode, isoRTO string) {
	s.mu.Lock()
	s.zoneISO[zoneCode] = isoRTO
	s.mu.Unlock()
}

func tsKey(ts time.Time) string {
	return strconv.FormatInt(ts.UTC().UnixNano(), 10)
}

// UpsertBatch implements timeseries.Store.
func (s *FactStore) UpsertBatch(ctx context.Context, batch timeseries.Batch) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	for _, rec := range batch.Prices {
		if rec.Zone == "" || rec.TS.IsZero() || rec.Market == "" {
			return 0, timeseries.ErrInvalidRecord
		}
	}
	for _, rec := range batch.Loads {
		if rec.Zone == "" || rec.TS.IsZero() {
			return 0, timeseries.ErrInvalidRecord
		}
	}
	for _, rec := range batch.FuelMix {
		if rec.ISORTO == "" || rec.TS.IsZero() || rec.FuelType == "" {
			return 0, timeseries.ErrInvalidRecord
		}
	}
	for _, rec := range batch.Flows {
		if rec.InterfaceID == "" || rec.TS.IsZero() {
			return 0, timeseries.ErrInvalidRecord
		}
	}
	for _, rec := range batch.Weather {
		if rec.Region == "" || rec.TS.IsZero() {
			return 0, timeseries.ErrInvalidRecord
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, rec := range batch.Prices {
		rec.TS = rec.TS.UTC()
		s.prices[rec.Zone+"|"+tsKey(rec.TS)+"|"+string(rec.Market)] = rec
		count++
	}
	for _, rec := range batch.Loads {
		rec.TS = rec.TS.UTC()
		s.loads[rec.Zone+"|"+tsKey(rec.TS)] = rec
		count++
	}
	for _, rec := range batch.FuelMix {
		rec.TS = rec.TS.UTC()
		s.fuelMix[rec.ISORTO+"|"+rec.Zone+"|"+tsKey(rec.TS)+"|"+rec.FuelType] = rec
		count++
	}
	for _, rec := range batch.Flows {
		rec.TS = rec.TS.UTC()
		s.flows[rec.InterfaceID+"|"+tsKey(rec.TS)] = rec
		count++
	}
	for _, rec := range batch.Weather {
		rec.TS = rec.TS.UTC()
		s.weather[rec.Region+"|"+tsKey(rec.TS)+"|"+strconv.FormatBool(rec.IsForecast)] = rec
		count++
	}
	return count, nil
}

// Len returns the total stored row count.
func (s *FactStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prices) + len(s.loads) + len(s.fuelMix) + len(s.flows) + len(s.weather)
}

func matchZone(zones []string, zone string) bool {
	if len(zones) == 0 {
		return true
	}
	for _, z := range zones {
		if z == zone {
			return true
		}
	}
	return false
}

// ScanPrices implements timeseries.Query.
func (s *FactStore) ScanPrices(ctx context.Context, filter timeseries.PriceFilter) ([]timeseries.PriceRecord, error) {
	if err := filter.Range.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []timeseries.PriceRecord
	for _, rec := range s.prices {
		if !filter.Range.Contains(rec.TS) || !matchZone(filter.Zones, rec.Zone) {
			continue
		}
		if filter.ISORTO != "" && s.zoneISO[rec.Zone] != filter.ISORTO {
			continue
		}
		if filter.Market != "" && rec.Market != filter.Market {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TS.Equal(out[j].TS) {
			return out[i].TS.Before(out[j].TS)
		}
		if out[i].Zone != out[j].Zone {
			return out[i].Zone < out[j].Zone
		}
		return out[i].Market < out[j].Market
	})
	return out, nil
}

// ScanLoads implements timeseries.Query.
func (s *FactStore) ScanLoads(ctx context.Context, filter timeseries.LoadFilter) ([]timeseries.LoadRecord, error) {
	if err := filter.Range.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []timeseries.LoadRecord
	for _, rec := range s.loads {
		if !filter.Range.Contains(rec.TS) || !matchZone(filter.Zones, rec.Zone) {
			continue
		}
		if filter.ISORTO != "" && s.zoneISO[rec.Zone] != filter.ISORTO {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TS.Equal(out[j].TS) {
			return out[i].TS.Before(out[j].TS)
		}
		return out[i].Zone < out[j].Zone
	})
	return out, nil
}

// ScanFuelMix implements timeseries.Query.
func (s *FactStore) ScanFuelMix(ctx context.Context, filter timeseries.FuelMixFilter) ([]timeseries.FuelMixRecord, error) {
	if err := filter.Range.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []timeseries.FuelMixRecord
	for _, rec := range s.fuelMix {
		if !filter.Range.Contains(rec.TS) {
			continue
		}
		if filter.ISORTO != "" && rec.ISORTO != filter.ISORTO {
			continue
		}
		if !matchZone(filter.Zones, rec.Zone) {
			continue
		}
		if len(filter.FuelTypes) > 0 && !matchZone(filter.FuelTypes, rec.FuelType) {
			continue
		}
		if filter.RenewableOnly && !rec.IsRenewable {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TS.Equal(out[j].TS) {
			return out[i].TS.Before(out[j].TS)
		}
		if out[i].ISORTO != out[j].ISORTO {
			return out[i].ISORTO < out[j].ISORTO
		}
		return out[i].FuelType < out[j].FuelType
	})
	return out, nil
}

// ScanFlows implements timeseries.Query.
func (s *FactStore) ScanFlows(ctx context.Context, filter timeseries.FlowFilter) ([]timeseries.InterfaceFlowRecord, error) {
	if err := filter.Range.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []timeseries.InterfaceFlowRecord
	for _, rec := range s.flows {
		if !filter.Range.Contains(rec.TS) || !matchZone(filter.InterfaceIDs, rec.InterfaceID) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TS.Equal(out[j].TS) {
			return out[i].TS.Before(out[j].TS)
		}
		return out[i].InterfaceID < out[j].InterfaceID
	})
	return out, nil
}

// ScanWeather implements timeseries.Query.
func (s *FactStore) ScanWeather(ctx context.Context, filter timeseries.WeatherFilter) ([]timeseries.WeatherRecord, error) {
	if err := filter.Range.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []timeseries.WeatherRecord
	for _, rec := range s.weather {
		if !filter.Range.Contains(rec.TS) || rec.IsForecast != filter.Forecast {
			continue
		}
		if !matchZone(filter.Regions, rec.Region) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TS.Equal(out[j].TS) {
			return out[i].TS.Before(out[j].TS)
		}
		return out[i].Region < out[j].Region
	})
	return out, nil
}
