package catalog

// Zone is a grid pricing/load zone. A zone belongs to exactly one state and
// one ISO/RTO, and is served by exactly one weather region.
type Zone struct {
	Code        string
	Name        string
	State       string
	ISORTO      string
	RegionCode  string
	Timezone    string
	GeometryRef string
}

// Interface is an ordered pair of zones with optional transfer-limit metadata.
type Interface struct {
	ID              string
	FromZone        string
	ToZone          string
	TransferLimitMW *float64
}

// Region is a weather region. Regions form an identity space distinct from
// zones; a region may serve multiple zones.
type Region struct {
	Code        string
	Name        string
	State       string
	Timezone    string
	Latitude    float64
	Longitude   float64
	GeometryRef string
}
