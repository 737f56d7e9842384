package meteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	catalog "gridpulse/internal/catalog/domain"
	"gridpulse/internal/ingest/adapters"
	timeseries "gridpulse/internal/timeseries/domain"
)

const (
	defaultBaseURL = "https://meteostat.p.rapidapi.com"

	// Upstream publishes naive UTC timestamps in metric units; conversion
	// to canonical units happens in the Normalizer.
	sourceTimezone = "UTC"
	periodLayout   = "2006-01-02 15:04:05"
)

// CatalogSource provides the current catalog snapshot for region iteration.
type CatalogSource interface {
	Snapshot() (*catalog.Snapshot, error)
}

// Client is the weather source adapter covering hourly observations and
// hourly forecasts per region point.
type Client struct {
	baseURL   string
	apiKey    string
	transport *adapters.Transport
	catalog   CatalogSource
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.transport = adapters.NewTransport(client, adapters.NewBreaker("meteo"), adapters.DefaultBackoff())
	}
}

// NewClient constructs a weather client.
func NewClient(apiKey string, catalogSource CatalogSource, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("meteo: api key required")
	}
	if catalogSource == nil {
		return nil, errors.New("meteo: nil catalog source")
	}
	client := &Client{
		baseURL:   defaultBaseURL,
		apiKey:    apiKey,
		transport: adapters.NewTransport(nil, adapters.NewBreaker("meteo"), adapters.DefaultBackoff()),
		catalog:   catalogSource,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Source implements adapters.SourceAdapter.
func (c *Client) Source() adapters.SourceKind { return adapters.SourceWeather }

// Entities implements adapters.SourceAdapter.
func (c *Client) Entities() []timeseries.EntityType {
	return []timeseries.EntityType{
		timeseries.EntityWeatherObservation,
		timeseries.EntityWeatherForecast,
	}
}

// Fetch implements adapters.SourceAdapter.
func (c *Client) Fetch(ctx context.Context, entity timeseries.EntityType, since, until time.Time) (adapters.Payload, error) {
	payload := adapters.Payload{Source: adapters.SourceWeather, Entity: entity, Timezone: sourceTimezone}

	var route string
	switch entity {
	case timeseries.EntityWeatherObservation:
		route = "/point/hourly"
	case timeseries.EntityWeatherForecast:
		route = "/point/forecast"
	default:
		return payload, fmt.Errorf("meteo: unsupported entity type %s", entity)
	}

	snap, err := c.catalog.Snapshot()
	if err != nil {
		return payload, adapters.NewError(adapters.ErrMalformedResponse, "meteo.catalog", err)
	}

	for _, region := range snap.Regions() {
		rows, err := c.fetchPoint(ctx, route, region, since, until)
		if err != nil {
			return payload, err
		}
		for _, row := range rows {
			record := adapters.RawRecord{
				EntityCode: region.Code,
				Period:     row.Time,
				Values:     map[string]float64{},
			}
			setIfPresent(record.Values, "temp_c", row.TempC)
			setIfPresent(record.Values, "rhum_pct", row.RelHumidity)
			setIfPresent(record.Values, "wspd_kmh", row.WindSpeedKmh)
			setIfPresent(record.Values, "wdir_deg", row.WindDirDeg)
			setIfPresent(record.Values, "prcp_mm", row.PrecipMm)
			setIfPresent(record.Values, "cldc_pct", row.CloudCover)
			payload.Records = append(payload.Records, record)
		}
	}
	return payload, nil
}

// pointRow is one upstream hourly row.
type pointRow struct {
	Time         string   `json:"time"`
	TempC        *float64 `json:"temp"`
	RelHumidity  *float64 `json:"rhum"`
	WindSpeedKmh *float64 `json:"wspd"`
	WindDirDeg   *float64 `json:"wdir"`
	PrecipMm     *float64 `json:"prcp"`
	CloudCover   *float64 `json:"cldc"`
}

type pointResponse struct {
	Data []pointRow `json:"data"`
}

func (c *Client) fetchPoint(ctx context.Context, route string, region catalog.Region, since, until time.Time) ([]pointRow, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(region.Latitude, 'f', 4, 64))
	params.Set("lon", strconv.FormatFloat(region.Longitude, 'f', 4, 64))
	params.Set("start", since.UTC().Format("2006-01-02"))
	params.Set("end", until.UTC().Format("2006-01-02"))
	params.Set("key", c.apiKey)

	op := "meteo" + route
	body, err := c.transport.GetJSON(ctx, op, c.baseURL+route+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var decoded pointResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, adapters.NewError(adapters.ErrMalformedResponse, op, err)
	}
	if decoded.Data == nil {
		return nil, adapters.NewError(adapters.ErrMalformedResponse, op, errors.New("missing data"))
	}
	return decoded.Data, nil
}

func setIfPresent(values map[string]float64, key string, value *float64) {
	if value != nil {
		values[key] = *value
	}
}
