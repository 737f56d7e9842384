package apihttp

import (
	"net/http"

	catalog "gridpulse/internal/catalog/domain"
)

// ZonesHandler serves the zone catalog.
type ZonesHandler struct {
	catalog *catalog.Cache
}

// NewZonesHandler constructs a ZonesHandler.
func NewZonesHandler(cache *catalog.Cache) *ZonesHandler {
	return &ZonesHandler{catalog: cache}
}

// ServeHTTP handles GET /api/v1/energy/zones and /api/v1/energy/zones/{code}.
func (h *ZonesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.catalog == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	snap, err := h.catalog.Snapshot()
	if err != nil {
		http.Error(w, "catalog not loaded", http.StatusServiceUnavailable)
		return
	}

	if code, ok := pathTail(r.URL.Path, "/api/v1/energy/zones/"); ok {
		zone, found := snap.Zone(code)
		if !found {
			writeQueryError(w, catalog.UnknownZoneError(code))
			return
		}
		writeJSON(w, zone)
		return
	}

	state := r.URL.Query().Get("state")
	isoRTO := r.URL.Query().Get("iso_rto")
	zones := make([]catalog.Zone, 0)
	for _, zone := range snap.Zones() {
		if state != "" && zone.State != state {
			continue
		}
		if isoRTO != "" && zone.ISORTO != isoRTO {
			continue
		}
		zones = append(zones, zone)
	}
	writeJSON(w, zones)
}

// RegionsHandler serves the weather region catalog.
type RegionsHandler struct {
	catalog *catalog.Cache
}

// NewRegionsHandler constructs a RegionsHandler.
func NewRegionsHandler(cache *catalog.Cache) *RegionsHandler {
	return &RegionsHandler{catalog: cache}
}

// ServeHTTP handles GET /api/v1/weather/regions.
func (h *RegionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.catalog == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	snap, err := h.catalog.Snapshot()
	if err != nil {
		http.Error(w, "catalog not loaded", http.StatusServiceUnavailable)
		return
	}

	state := r.URL.Query().Get("state")
	regions := make([]catalog.Region, 0)
	for _, region := range snap.Regions() {
		if state != "" && region.State != state {
			continue
		}
		regions = append(regions, region)
	}
	writeJSON(w, regions)
}
