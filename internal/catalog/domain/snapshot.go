package catalog

import (
	"fmt"
	"sort"
	"time"
)

// Snapshot is an immutable view of the reference catalog with precomputed
// adjacency maps (zone→region, zone→ISO). Lookups never mutate state, so a
// snapshot is safe to share across goroutines.
type Snapshot struct {
	zones      map[string]Zone
	regions    map[string]Region
	interfaces map[string]Interface

	zoneRegion map[string]string
	zoneISO    map[string]string
	isoZones   map[string][]string
	pairIndex  map[string]string

	locations map[string]*time.Location
}

// NewSnapshot builds a snapshot and validates referential integrity: every
// zone must name an existing region and a parseable timezone, every
// interface must connect two known zones.
func NewSnapshot(zones []Zone, regions []Region, interfaces []Interface) (*Snapshot, error) {
	if len(zones) == 0 {
		return nil, ErrEmptyCatalog
	}

	snap := &Snapshot{
		zones:      make(map[string]Zone, len(zones)),
		regions:    make(map[string]Region, len(regions)),
		interfaces: make(map[string]Interface, len(interfaces)),
		zoneRegion: make(map[string]string, len(zones)),
		zoneISO:    make(map[string]string, len(zones)),
		isoZones:   make(map[string][]string),
		pairIndex:  make(map[string]string, len(interfaces)),
		locations:  make(map[string]*time.Location),
	}

	for _, region := range regions {
		if region.Code == "" {
			return nil, fmt.Errorf("catalog: region with empty code")
		}
		if err := snap.loadLocation(region.Timezone); err != nil {
			return nil, fmt.Errorf("catalog: region %s: %w", region.Code, err)
		}
		snap.regions[region.Code] = region
	}

	for _, zone := range zones {
		if zone.Code == "" {
			return nil, fmt.Errorf("catalog: zone with empty code")
		}
		if _, ok := snap.regions[zone.RegionCode]; !ok {
			return nil, fmt.Errorf("catalog: zone %s references %w", zone.Code, UnknownRegionError(zone.RegionCode))
		}
		if err := snap.loadLocation(zone.Timezone); err != nil {
			return nil, fmt.Errorf("catalog: zone %s: %w", zone.Code, err)
		}
		snap.zones[zone.Code] = zone
		snap.zoneRegion[zone.Code] = zone.RegionCode
		snap.zoneISO[zone.Code] = zone.ISORTO
		snap.isoZones[zone.ISORTO] = append(snap.isoZones[zone.ISORTO], zone.Code)
	}

	for _, iface := range interfaces {
		if iface.ID == "" {
			return nil, fmt.Errorf("catalog: interface with empty id")
		}
		if _, ok := snap.zones[iface.FromZone]; !ok {
			return nil, fmt.Errorf("catalog: interface %s references %w", iface.ID, UnknownZoneError(iface.FromZone))
		}
		if _, ok := snap.zones[iface.ToZone]; !ok {
			return nil, fmt.Errorf("catalog: interface %s references %w", iface.ID, UnknownZoneError(iface.ToZone))
		}
		snap.interfaces[iface.ID] = iface
		snap.pairIndex[iface.FromZone+"→"+iface.ToZone] = iface.ID
	}

	for iso := range snap.isoZones {
		sort.Strings(snap.isoZones[iso])
	}
	return snap, nil
}

func (s *Snapshot) loadLocation(name string) error {
	if name == "" {
		name = "UTC"
	}
	if _, ok := s.locations[name]; ok {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	s.locations[name] = loc
	return nil
}

// Zone returns the zone for a code.
func (s *Snapshot) Zone(code string) (Zone, bool) {
	zone, ok := s.zones[code]
	return zone, ok
}

// Region returns the region for a code.
func (s *Snapshot) Region(code string) (Region, bool) {
	region, ok := s.regions[code]
	return region, ok
}

// Interface returns the interface for an id.
func (s *Snapshot) Interface(id string) (Interface, bool) {
	iface, ok := s.interfaces[id]
	return iface, ok
}

// InterfaceBetween resolves an interface by its ordered zone pair.
func (s *Snapshot) InterfaceBetween(fromZone, toZone string) (Interface, bool) {
	id, ok := s.pairIndex[fromZone+"→"+toZone]
	if !ok {
		return Interface{}, false
	}
	return s.interfaces[id], true
}

// RegionForZone resolves the weather region serving a zone.
func (s *Snapshot) RegionForZone(zoneCode string) (Region, bool) {
	regionCode, ok := s.zoneRegion[zoneCode]
	if !ok {
		return Region{}, false
	}
	region, ok := s.regions[regionCode]
	return region, ok
}

// ZonesForISO returns the sorted zone codes belonging to an ISO/RTO.
func (s *Snapshot) ZonesForISO(isoRTO string) []string {
	codes := s.isoZones[isoRTO]
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}

// Zones returns all zones ordered by code.
func (s *Snapshot) Zones() []Zone {
	out := make([]Zone, 0, len(s.zones))
	for _, zone := range s.zones {
		out = append(out, zone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Regions returns all regions ordered by code.
func (s *Snapshot) Regions() []Region {
	out := make([]Region, 0, len(s.regions))
	for _, region := range s.regions {
		out = append(out, region)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Interfaces returns all interfaces ordered by id.
func (s *Snapshot) Interfaces() []Interface {
	out := make([]Interface, 0, len(s.interfaces))
	for _, iface := range s.interfaces {
		out = append(out, iface)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ISORTOs returns the distinct ISO/RTO groupings in the catalog, sorted.
func (s *Snapshot) ISORTOs() []string {
	out := make([]string, 0, len(s.isoZones))
	for iso := range s.isoZones {
		out = append(out, iso)
	}
	sort.Strings(out)
	return out
}

// ZoneLocation returns the timezone location for a zone's local calendar.
func (s *Snapshot) ZoneLocation(zoneCode string) (*time.Location, error) {
	zone, ok := s.zones[zoneCode]
	if !ok {
		return nil, UnknownZoneError(zoneCode)
	}
	return s.location(zone.Timezone), nil
}

// RegionLocation returns the timezone location for a region's local calendar.
func (s *Snapshot) RegionLocation(regionCode string) (*time.Location, error) {
	region, ok := s.regions[regionCode]
	if !ok {
		return nil, UnknownRegionError(regionCode)
	}
	return s.location(region.Timezone), nil
}

func (s *Snapshot) location(name string) *time.Location {
	if name == "" {
		name = "UTC"
	}
	if loc, ok := s.locations[name]; ok {
		return loc
	}
	return time.UTC
}
