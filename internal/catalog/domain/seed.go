package catalog

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Seed is the parsed catalog seed file. Seeding is a one-time step; the
// resulting rows rarely change afterwards.
type Seed struct {
	Zones      []SeedZone      `yaml:"zones" validate:"required,min=1,dive"`
	Regions    []SeedRegion    `yaml:"regions" validate:"required,min=1,dive"`
	Interfaces []SeedInterface `yaml:"interfaces" validate:"dive"`
}

// SeedZone is one zone entry in the seed file.
type SeedZone struct {
	Code        string `yaml:"code" validate:"required"`
	Name        string `yaml:"name" validate:"required"`
	State       string `yaml:"state" validate:"required,len=2"`
	ISORTO      string `yaml:"iso_rto" validate:"required"`
	Region      string `yaml:"region" validate:"required"`
	Timezone    string `yaml:"timezone"`
	GeometryRef string `yaml:"geometry_ref"`
}

// SeedRegion is one weather region entry in the seed file.
type SeedRegion struct {
	Code        string  `yaml:"code" validate:"required"`
	Name        string  `yaml:"name" validate:"required"`
	State       string  `yaml:"state" validate:"required,len=2"`
	Timezone    string  `yaml:"timezone"`
	Latitude    float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64 `yaml:"longitude" validate:"gte=-180,lte=180"`
	GeometryRef string  `yaml:"geometry_ref"`
}

// SeedInterface is one zone interface entry in the seed file.
type SeedInterface struct {
	ID              string   `yaml:"id" validate:"required"`
	FromZone        string   `yaml:"from_zone" validate:"required"`
	ToZone          string   `yaml:"to_zone" validate:"required,nefield=FromZone"`
	TransferLimitMW *float64 `yaml:"transfer_limit_mw"`
}

// LoadSeedFile reads and validates a catalog seed file.
func LoadSeedFile(path string) (Seed, error) {
	var seed Seed
	data, err := os.ReadFile(path)
	if err != nil {
		return seed, fmt.Errorf("catalog: read seed: %w", err)
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return seed, fmt.Errorf("catalog: parse seed: %w", err)
	}
	if err := validator.New().Struct(seed); err != nil {
		return seed, fmt.Errorf("catalog: invalid seed: %w", err)
	}
	return seed, nil
}

// Entities converts the seed into domain entities and checks that the
// result forms a valid snapshot.
func (s Seed) Entities() ([]Zone, []Region, []Interface, error) {
	zones := make([]Zone, 0, len(s.Zones))
	for _, z := range s.Zones {
		zones = append(zones, Zone{
			Code:        z.Code,
			Name:        z.Name,
			State:       z.State,
			ISORTO:      z.ISORTO,
			RegionCode:  z.Region,
			Timezone:    z.Timezone,
			GeometryRef: z.GeometryRef,
		})
	}
	regions := make([]Region, 0, len(s.Regions))
	for _, r := range s.Regions {
		regions = append(regions, Region{
			Code:        r.Code,
			Name:        r.Name,
			State:       r.State,
			Timezone:    r.Timezone,
			Latitude:    r.Latitude,
			Longitude:   r.Longitude,
			GeometryRef: r.GeometryRef,
		})
	}
	interfaces := make([]Interface, 0, len(s.Interfaces))
	for _, i := range s.Interfaces {
		interfaces = append(interfaces, Interface{
			ID:              i.ID,
			FromZone:        i.FromZone,
			ToZone:          i.ToZone,
			TransferLimitMW: i.TransferLimitMW,
		})
	}
	if _, err := NewSnapshot(zones, regions, interfaces); err != nil {
		return nil, nil, nil, err
	}
	return zones, regions, interfaces, nil
}
