package normalize

// Canonical units: MW, $/MWh, °F, mph, inches. Upstream weather values
// arrive metric and are converted exactly once, here.

// CelsiusToFahrenheit converts °C to °F.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9.0/5.0 + 32.0
}

// KmhToMph converts km/h to mph.
func KmhToMph(kmh float64) float64 {
	return kmh * 0.621371
}

// MmToInches converts millimetres to inches.
func MmToInches(mm float64) float64 {
	return mm / 25.4
}
