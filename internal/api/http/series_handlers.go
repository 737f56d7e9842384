package apihttp

import (
	"net/http"

	"gridpulse/internal/analytics/application"
	analytics "gridpulse/internal/analytics/domain"
	catalog "gridpulse/internal/catalog/domain"
	timeseries "gridpulse/internal/timeseries/domain"
)

// LBMPHandler serves zone price series.
type LBMPHandler struct {
	engine  *application.Engine
	catalog *catalog.Cache
}

// NewLBMPHandler constructs a LBMPHandler.
func NewLBMPHandler(engine *application.Engine, cache *catalog.Cache) *LBMPHandler {
	return &LBMPHandler{engine: engine, catalog: cache}
}

// ServeHTTP handles GET /api/v1/energy/lbmp/{zone}.
func (h *LBMPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.engine == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	zone, ok := pathTail(r.URL.Path, "/api/v1/energy/lbmp/")
	if !ok {
		http.Error(w, "zone is required", http.StatusBadRequest)
		return
	}
	if err := requireZone(h.catalog, zone); err != nil {
		writeQueryError(w, err)
		return
	}

	start, end, err := parseRangeQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	market := timeseries.MarketType(r.URL.Query().Get("market_type"))
	if market != "" {
		if _, err := timeseries.ParseMarketType(string(market)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	req := application.Request{
		Entity:   timeseries.EntityPrice,
		Zones:    []string{zone},
		Market:   market,
		Range:    timeseries.TimeRange{Start: start, End: end},
		Interval: analytics.Interval(r.URL.Query().Get("interval")),
		Func:     analytics.Func(r.URL.Query().Get("agg_func")),
	}
	serveSeries(w, r, h.engine, req)
}

// LoadHandler serves zone load series.
type LoadHandler struct {
	engine  *application.Engine
	catalog *catalog.Cache
}

// NewLoadHandler constructs a LoadHandler.
func NewLoadHandler(engine *application.Engine, cache *catalog.Cache) *LoadHandler {
	return &LoadHandler{engine: engine, catalog: cache}
}

// ServeHTTP handles GET /api/v1/energy/load/{zone}.
func (h *LoadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.engine == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	zone, ok := pathTail(r.URL.Path, "/api/v1/energy/load/")
	if !ok {
		http.Error(w, "zone is required", http.StatusBadRequest)
		return
	}
	if err := requireZone(h.catalog, zone); err != nil {
		writeQueryError(w, err)
		return
	}

	start, end, err := parseRangeQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	metric := application.MetricLoad
	if r.URL.Query().Get("with_losses") == "true" {
		metric = application.MetricLoadWithLosses
	}

	req := application.Request{
		Entity:   timeseries.EntityLoad,
		Zones:    []string{zone},
		Metric:   metric,
		Range:    timeseries.TimeRange{Start: start, End: end},
		Interval: analytics.Interval(r.URL.Query().Get("interval")),
		Func:     analytics.Func(r.URL.Query().Get("agg_func")),
	}
	serveSeries(w, r, h.engine, req)
}

// FuelMixHandler serves fuel mix series, optionally restricted to
// renewable fuels and grouped renewable vs other.
type FuelMixHandler struct {
	engine    *application.Engine
	renewable bool
}

// NewFuelMixHandler constructs the full fuel mix handler.
func NewFuelMixHandler(engine *application.Engine) *FuelMixHandler {
	return &FuelMixHandler{engine: engine}
}

// NewRenewableFuelMixHandler constructs the renewable-vs-other variant.
func NewRenewableFuelMixHandler(engine *application.Engine) *FuelMixHandler {
	return &FuelMixHandler{engine: engine, renewable: true}
}

// ServeHTTP handles GET /api/v1/energy/fuel-mix and
// /api/v1/energy/renewable-fuel-mix.
func (h *FuelMixHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.engine == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	start, end, err := parseRangeQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	req := application.Request{
		Entity:         timeseries.EntityFuelMix,
		ISORTO:         query.Get("iso_rto"),
		Zones:          query["zone"],
		FuelTypes:      query["fuel_type"],
		GroupRenewable: h.renewable,
		Range:          timeseries.TimeRange{Start: start, End: end},
		Interval:       analytics.Interval(query.Get("interval")),
		Func:           analytics.Func(query.Get("agg_func")),
	}
	serveSeries(w, r, h.engine, req)
}

// InterfaceFlowHandler serves interface flow series.
type InterfaceFlowHandler struct {
	engine  *application.Engine
	catalog *catalog.Cache
}

// NewInterfaceFlowHandler constructs an InterfaceFlowHandler.
func NewInterfaceFlowHandler(engine *application.Engine, cache *catalog.Cache) *InterfaceFlowHandler {
	return &InterfaceFlowHandler{engine: engine, catalog: cache}
}

// ServeHTTP handles GET /api/v1/energy/interface-flow.
func (h *InterfaceFlowHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.engine == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()
	ids := query["interface_id"]
	if from, to := query.Get("from_zone"), query.Get("to_zone"); from != "" && to != "" {
		snap, err := h.catalog.Snapshot()
		if err != nil {
			http.Error(w, "catalog not loaded", http.StatusServiceUnavailable)
			return
		}
		iface, ok := snap.InterfaceBetween(from, to)
		if !ok {
			writeQueryError(w, catalog.UnknownInterfaceError(from+"→"+to))
			return
		}
		ids = append(ids, iface.ID)
	}

	start, end, err := parseRangeQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	metric := application.MetricFlow
	if query.Get("scheduled") == "true" {
		metric = application.MetricScheduledFlow
	}

	req := application.Request{
		Entity:       timeseries.EntityInterfaceFlow,
		InterfaceIDs: ids,
		Metric:       metric,
		Range:        timeseries.TimeRange{Start: start, End: end},
		Interval:     analytics.Interval(query.Get("interval")),
		Func:         analytics.Func(query.Get("agg_func")),
	}
	serveSeries(w, r, h.engine, req)
}

// WeatherSeriesHandler serves weather observation or forecast series.
type WeatherSeriesHandler struct {
	engine   *application.Engine
	catalog  *catalog.Cache
	prefix   string
	forecast bool
}

// NewWeatherSeriesHandler constructs the observation series handler.
func NewWeatherSeriesHandler(engine *application.Engine, cache *catalog.Cache) *WeatherSeriesHandler {
	return &WeatherSeriesHandler{engine: engine, catalog: cache, prefix: "/api/v1/weather/series/"}
}

// NewWeatherForecastHandler constructs the forecast series handler.
func NewWeatherForecastHandler(engine *application.Engine, cache *catalog.Cache) *WeatherSeriesHandler {
	return &WeatherSeriesHandler{engine: engine, catalog: cache, prefix: "/api/v1/weather/forecast/", forecast: true}
}

// ServeHTTP handles GET /api/v1/weather/series/{region} and
// /api/v1/weather/forecast/{region}.
func (h *WeatherSeriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.engine == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	region, ok := pathTail(r.URL.Path, h.prefix)
	if !ok {
		http.Error(w, "region is required", http.StatusBadRequest)
		return
	}
	if err := requireRegion(h.catalog, region); err != nil {
		writeQueryError(w, err)
		return
	}

	start, end, err := parseRangeQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entity := timeseries.EntityWeatherObservation
	if h.forecast {
		entity = timeseries.EntityWeatherForecast
	}
	req := application.Request{
		Entity:   entity,
		Regions:  []string{region},
		Metric:   r.URL.Query().Get("metric"),
		Range:    timeseries.TimeRange{Start: start, End: end},
		Interval: analytics.Interval(r.URL.Query().Get("interval")),
		Func:     analytics.Func(r.URL.Query().Get("agg_func")),
	}
	serveSeries(w, r, h.engine, req)
}

func serveSeries(w http.ResponseWriter, r *http.Request, engine *application.Engine, req application.Request) {
	series, err := engine.Aggregate(r.Context(), req)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	interval := req.Interval
	if interval == "" {
		interval = analytics.IntervalHourly
	}
	fn := req.Func
	if fn == "" {
		fn = analytics.DefaultFunc(req.Entity)
	}
	writeJSON(w, seriesResponse{
		Entity:   string(req.Entity),
		Interval: string(interval),
		AggFunc:  string(fn),
		Series:   series,
	})
}

func requireZone(cache *catalog.Cache, code string) error {
	snap, err := cache.Snapshot()
	if err != nil {
		return err
	}
	if _, ok := snap.Zone(code); !ok {
		return catalog.UnknownZoneError(code)
	}
	return nil
}

func requireRegion(cache *catalog.Cache, code string) error {
	snap, err := cache.Snapshot()
	if err != nil {
		return err
	}
	if _, ok := snap.Region(code); !ok {
		return catalog.UnknownRegionError(code)
	}
	return nil
}
