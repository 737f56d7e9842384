package normalize

import (
	"errors"
	"fmt"
	"math"
	"time"

	catalog "gridpulse/internal/catalog/domain"
	"gridpulse/internal/ingest/adapters"
	timeseries "gridpulse/internal/timeseries/domain"
)

// Timestamp layouts the two sources publish.
var periodLayouts = []string{
	"2006-01-02T15",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Options controls batch failure behaviour.
type Options struct {
	// Partial accepts normalizable records and reports the rest as
	// rejections instead of failing the whole batch. Needed when upstream
	// adds zones before the catalog is updated.
	Partial bool
}

// Rejection is one raw record that could not be normalized.
type Rejection struct {
	Record adapters.RawRecord
	Err    error
}

// Result is a normalized batch plus any per-record rejections (partial
// mode only; in strict mode a rejection fails the batch).
type Result struct {
	Batch      timeseries.Batch
	Rejections []Rejection
}

// Normalizer converts raw adapter payloads into canonical records. It is
// stateless apart from the catalog lookup: the same payload against the
// same snapshot always yields the same result.
type Normalizer struct {
	cache *catalog.Cache
}

// New constructs a Normalizer.
func New(cache *catalog.Cache) (*Normalizer, error) {
	if cache == nil {
		return nil, errors.New("normalize: nil catalog cache")
	}
	return &Normalizer{cache: cache}, nil
}

// Normalize converts a payload. In strict mode (the default) the first bad
// record rejects the whole batch.
func (n *Normalizer) Normalize(payload adapters.Payload, opts Options) (Result, error) {
	var result Result

	snap, err := n.cache.Snapshot()
	if err != nil {
		return result, err
	}
	loc, err := sourceLocation(payload.Timezone)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	for _, raw := range payload.Records {
		err := n.normalizeOne(snap, loc, payload.Entity, raw, &result.Batch)
		if err == nil {
			continue
		}
		if !opts.Partial {
			return Result{}, err
		}
		result.Rejections = append(result.Rejections, Rejection{Record: raw, Err: err})
	}
	return result, nil
}

func sourceLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func parsePeriod(period string, loc *time.Location) (time.Time, error) {
	for _, layout := range periodLayouts {
		if ts, err := time.ParseInLocation(layout, period, loc); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad period %q", ErrMalformedRecord, period)
}

func requireValue(raw adapters.RawRecord, field string) (float64, error) {
	value, ok := raw.Values[field]
	if !ok || math.IsNaN(value) {
		return 0, UnitMismatchError(field)
	}
	return value, nil
}

func (n *Normalizer) normalizeOne(snap *catalog.Snapshot, loc *time.Location, entity timeseries.EntityType, raw adapters.RawRecord, batch *timeseries.Batch) error {
	ts, err := parsePeriod(raw.Period, loc)
	if err != nil {
		return err
	}

	switch entity {
	case timeseries.EntityPrice:
		if _, ok := snap.Zone(raw.EntityCode); !ok {
			return UnknownEntityError(raw.EntityCode)
		}
		market, err := timeseries.ParseMarketType(raw.Labels["market"])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		price, err := requireValue(raw, "value")
		if err != nil {
			return err
		}
		batch.Prices = append(batch.Prices, timeseries.PriceRecord{
			Zone:                raw.EntityCode,
			TS:                  ts,
			Market:              market,
			Price:               price,
			LossComponent:       raw.Values["losses"],
			CongestionComponent: raw.Values["congestion"],
		})
		return nil

	case timeseries.EntityLoad:
		if _, ok := snap.Zone(raw.EntityCode); !ok {
			return UnknownEntityError(raw.EntityCode)
		}
		load, err := requireValue(raw, "value")
		if err != nil {
			return err
		}
		withLosses, ok := raw.Values["with_losses"]
		if !ok {
			// Upstream omits the with-losses series for some zones; the
			// published loss factor approximation stands in.
			withLosses = load * 1.05
		}
		batch.Loads = append(batch.Loads, timeseries.LoadRecord{
			Zone:             raw.EntityCode,
			TS:               ts,
			LoadMW:           load,
			LoadWithLossesMW: withLosses,
		})
		return nil

	case timeseries.EntityFuelMix:
		if len(snap.ZonesForISO(raw.EntityCode)) == 0 {
			if _, ok := snap.Zone(raw.EntityCode); !ok {
				return UnknownEntityError(raw.EntityCode)
			}
		}
		fuelType := raw.Labels["fueltype"]
		if fuelType == "" {
			return fmt.Errorf("%w: missing fueltype", ErrMalformedRecord)
		}
		generation, err := requireValue(raw, "value")
		if err != nil {
			return err
		}
		record := timeseries.FuelMixRecord{
			TS:           ts,
			FuelType:     fuelType,
			GenerationMW: generation,
			IsRenewable:  timeseries.IsRenewableFuel(fuelType),
		}
		if zone, ok := snap.Zone(raw.EntityCode); ok {
			record.ISORTO = zone.ISORTO
			record.Zone = zone.Code
		} else {
			record.ISORTO = raw.EntityCode
		}
		batch.FuelMix = append(batch.FuelMix, record)
		return nil

	case timeseries.EntityInterfaceFlow:
		iface, ok := snap.Interface(raw.EntityCode)
		if !ok {
			iface, ok = snap.InterfaceBetween(raw.Labels["from"], raw.Labels["to"])
		}
		if !ok {
			return UnknownEntityError(raw.EntityCode)
		}
		flow, err := requireValue(raw, "value")
		if err != nil {
			return err
		}
		record := timeseries.InterfaceFlowRecord{
			InterfaceID:     iface.ID,
			TS:              ts,
			FlowMW:          flow,
			ScheduledFlowMW: raw.Values["scheduled"],
		}
		if iface.TransferLimitMW != nil {
			limit := *iface.TransferLimitMW
			record.LimitMW = &limit
		}
		batch.Flows = append(batch.Flows, record)
		return nil

	case timeseries.EntityWeatherObservation, timeseries.EntityWeatherForecast:
		if _, ok := snap.Region(raw.EntityCode); !ok {
			return UnknownEntityError(raw.EntityCode)
		}
		tempC, err := requireValue(raw, "temp_c")
		if err != nil {
			return err
		}
		batch.Weather = append(batch.Weather, timeseries.WeatherRecord{
			Region:           raw.EntityCode,
			TS:               ts,
			IsForecast:       entity == timeseries.EntityWeatherForecast,
			TemperatureF:     CelsiusToFahrenheit(tempC),
			HumidityPct:      raw.Values["rhum_pct"],
			WindSpeedMPH:     KmhToMph(raw.Values["wspd_kmh"]),
			WindDirectionDeg: int(math.Round(raw.Values["wdir_deg"])),
			PrecipitationIn:  MmToInches(raw.Values["prcp_mm"]),
			CloudCoverPct:    raw.Values["cldc_pct"],
		})
		return nil

	default:
		return fmt.Errorf("%w: unsupported entity type %s", ErrMalformedRecord, entity)
	}
}
