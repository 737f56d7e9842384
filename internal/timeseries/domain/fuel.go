package timeseries

// Fuel type codes as published by the grid-operations source.
const (
	FuelCoal       = "COL"
	FuelNaturalGas = "NG"
	FuelNuclear    = "NUC"
	FuelWind       = "WND"
	FuelSolar      = "SUN"
	FuelOil        = "OIL"
	FuelHydro      = "WAT"
	FuelOther      = "OTH"
)

// OTH is the source's "other renewables" bucket (biomass, landfill gas),
// so it counts as renewable alongside wind, solar and hydro.
var renewableFuels = map[string]bool{
	FuelWind:  true,
	FuelSolar: true,
	FuelHydro: true,
	FuelOther: true,
}

// IsRenewableFuel classifies a fuel type code.
func IsRenewableFuel(fuelType string) bool {
	return renewableFuels[fuelType]
}

// KnownFuelTypes returns the fuel type codes the grid source publishes.
func KnownFuelTypes() []string {
	return []string{FuelCoal, FuelNaturalGas, FuelNuclear, FuelWind, FuelSolar, FuelOil, FuelHydro, FuelOther}
}
