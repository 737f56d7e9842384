package eia

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
	defaultBaseURL    = "https://api.eia.gov/v2"
	defaultPageLength = 5000

	// Upstream hourly periods are published as naive UTC hours.
	sourceTimezone = "UTC"
	periodLayout   = "2006-01-02T15"
)

// CatalogSource provides the current catalog snapshot. The client iterates
// catalog zones/ISOs when building requests but never resolves identity;
// that stays with the Normalizer.
type CatalogSource interface {
	Snapshot() (*catalog.Snapshot, error)
}

// Client is the grid-operations source adapter. It is the only code that
// knows this source's wire format and authentication.
type Client struct {
	baseURL    string
	apiKey     string
	transport  *adapters.Transport
	catalog    CatalogSource
	pageLength int
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
		c.transport = adapters.NewTransport(client, adapters.NewBreaker("eia"), adapters.DefaultBackoff())
	}
}

// NewClient constructs a grid-operations client.
func NewClient(apiKey string, catalogSource CatalogSource, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("eia: api key required")
	}
	if catalogSource == nil {
		return nil, errors.New("eia: nil catalog source")
	}
	client := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		transport:  adapters.NewTransport(nil, adapters.NewBreaker("eia"), adapters.DefaultBackoff()),
		catalog:    catalogSource,
		pageLength: defaultPageLength,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Source implements adapters.SourceAdapter.
func (c *Client) Source() adapters.SourceKind { return adapters.SourceGrid }

// Entities implements adapters.SourceAdapter.
func (c *Client) Entities() []timeseries.EntityType {
	return []timeseries.EntityType{
		timeseries.EntityPrice,
		timeseries.EntityLoad,
		timeseries.EntityFuelMix,
		timeseries.EntityInterfaceFlow,
	}
}

// Fetch implements adapters.SourceAdapter.
func (c *Client) Fetch(ctx context.Context, entity timeseries.EntityType, since, until time.Time) (adapters.Payload, error) {
	payload := adapters.Payload{Source: adapters.SourceGrid, Entity: entity, Timezone: sourceTimezone}

	snap, err := c.catalog.Snapshot()
	if err != nil {
		return payload, adapters.NewError(adapters.ErrMalformedResponse, "eia.catalog", err)
	}

	switch entity {
	case timeseries.EntityPrice:
		payload.Records, err = c.fetchPrices(ctx, snap, since, until)
	case timeseries.EntityLoad:
		payload.Records, err = c.fetchLoads(ctx, snap, since, until)
	case timeseries.EntityFuelMix:
		payload.Records, err = c.fetchFuelMix(ctx, snap, since, until)
	case timeseries.EntityInterfaceFlow:
		payload.Records, err = c.fetchFlows(ctx, snap, since, until)
	default:
		return payload, fmt.Errorf("eia: unsupported entity type %s", entity)
	}
	return payload, err
}

// apiResponse is the upstream envelope.
type apiResponse struct {
	Response struct {
		Data []map[string]any `json:"data"`
	} `json:"response"`
}

func (c *Client) fetchSeries(ctx context.Context, op, route string, params url.Values) ([]map[string]any, error) {
	params.Set("api_key", c.apiKey)
	params.Set("data[0]", "value")
	params.Set("sort[0][column]", "period")
	params.Set("sort[0][direction]", "asc")
	params.Set("offset", "0")
	params.Set("length", strconv.Itoa(c.pageLength))

	body, err := c.transport.GetJSON(ctx, op, c.baseURL+route+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var decoded apiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, adapters.NewError(adapters.ErrMalformedResponse, op, err)
	}
	if decoded.Response.Data == nil {
		return nil, adapters.NewError(adapters.ErrMalformedResponse, op, errors.New("missing response.data"))
	}
	return decoded.Response.Data, nil
}

func windowParams(since, until time.Time) url.Values {
	params := url.Values{}
	params.Set("frequency", "hourly")
	params.Set("start", since.UTC().Format(periodLayout))
	params.Set("end", until.UTC().Format(periodLayout))
	return params
}

func floatField(row map[string]any, key string) (float64, bool) {
	value, ok := row[key]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func stringField(row map[string]any, key string) string {
	if value, ok := row[key].(string); ok {
		return value
	}
	return ""
}

func (c *Client) fetchPrices(ctx context.Context, snap *catalog.Snapshot, since, until time.Time) ([]adapters.RawRecord, error) {
	var records []adapters.RawRecord
	for _, market := range []string{"DA", "RT"} {
		for _, zone := range snap.Zones() {
			params := windowParams(since, until)
			params.Set("facets[type][]", "LBMP")
			params.Set("facets[market][]", market)
			params.Set("facets[respondent][]", zone.Code)

			rows, err := c.fetchSeries(ctx, "eia.prices", "/electricity/rto/region-data/data/", params)
			if err != nil {
				return nil, err
			}
			for _, row := range rows {
				value, ok := floatField(row, "value")
				if !ok {
					continue
				}
				congestion, _ := floatField(row, "congestion")
				losses, _ := floatField(row, "losses")
				records = append(records, adapters.RawRecord{
					EntityCode: zone.Code,
					Period:     stringField(row, "period"),
					Values: map[string]float64{
						"value":      value,
						"congestion": congestion,
						"losses":     losses,
					},
					Labels: map[string]string{"market": market},
				})
			}
		}
	}
	return records, nil
}

func (c *Client) fetchLoads(ctx context.Context, snap *catalog.Snapshot, since, until time.Time) ([]adapters.RawRecord, error) {
	var records []adapters.RawRecord
	for _, zone := range snap.Zones() {
		params := windowParams(since, until)
		params.Set("facets[type][]", "D")
		params.Set("facets[respondent][]", zone.Code)

		rows, err := c.fetchSeries(ctx, "eia.load", "/electricity/rto/region-data/data/", params)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			value, ok := floatField(row, "value")
			if !ok {
				continue
			}
			record := adapters.RawRecord{
				EntityCode: zone.Code,
				Period:     stringField(row, "period"),
				Values:     map[string]float64{"value": value},
			}
			if withLosses, ok := floatField(row, "with_losses"); ok {
				record.Values["with_losses"] = withLosses
			}
			records = append(records, record)
		}
	}
	return records, nil
}

func (c *Client) fetchFuelMix(ctx context.Context, snap *catalog.Snapshot, since, until time.Time) ([]adapters.RawRecord, error) {
	var records []adapters.RawRecord
	for _, isoRTO := range snap.ISORTOs() {
		params := windowParams(since, until)
		params.Set("facets[respondent][]", isoRTO)
		for _, fuel := range timeseries.KnownFuelTypes() {
			params.Add("facets[fueltype][]", fuel)
		}

		rows, err := c.fetchSeries(ctx, "eia.fuelmix", "/electricity/rto/fuel-type-data/data/", params)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			value, ok := floatField(row, "value")
			if !ok {
				continue
			}
			fuelType := stringField(row, "fueltype")
			if fuelType == "" {
				fuelType = timeseries.FuelOther
			}
			records = append(records, adapters.RawRecord{
				EntityCode: isoRTO,
				Period:     stringField(row, "period"),
				Values:     map[string]float64{"value": value},
				Labels:     map[string]string{"fueltype": fuelType},
			})
		}
	}
	return records, nil
}

func (c *Client) fetchFlows(ctx context.Context, snap *catalog.Snapshot, since, until time.Time) ([]adapters.RawRecord, error) {
	var records []adapters.RawRecord
	for _, iface := range snap.Interfaces() {
		params := windowParams(since, until)
		params.Set("facets[fromba][]", iface.FromZone)
		params.Set("facets[toba][]", iface.ToZone)

		rows, err := c.fetchSeries(ctx, "eia.flows", "/electricity/rto/interchange-data/data/", params)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			value, ok := floatField(row, "value")
			if !ok {
				continue
			}
			record := adapters.RawRecord{
				EntityCode: iface.ID,
				Period:     stringField(row, "period"),
				Values:     map[string]float64{"value": value},
				Labels: map[string]string{
					"from": iface.FromZone,
					"to":   iface.ToZone,
				},
			}
			if scheduled, ok := floatField(row, "scheduled"); ok {
				record.Values["scheduled"] = scheduled
			}
			records = append(records, record)
		}
	}
	return records, nil
}
