package timeseries

import "testing"

func TestIsRenewableFuel(t *testing.T) {
	renewable := []string{FuelWind, FuelSolar, FuelHydro, FuelOther}
	for _, fuel := range renewable {
		if !IsRenewableFuel(fuel) {
			t.Errorf("expected %s to be renewable", fuel)
		}
	}
	for _, fuel := range []string{FuelCoal, FuelNaturalGas, FuelNuclear, FuelOil} {
		if IsRenewableFuel(fuel) {
			t.Errorf("expected %s to be non-renewable", fuel)
		}
	}
}
