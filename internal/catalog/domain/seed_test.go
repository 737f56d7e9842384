package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

const seedYAML = `zones:
  - code: NYCW
    name: N.Y.C. West
    state: NY
    iso_rto: NYISO
    region: NYC
    timezone: America/New_York
  - code: CAPITL
    name: Capital
    state: NY
    iso_rto: NYISO
    region: ALB
regions:
  - code: NYC
    name: New York City
    state: NY
    timezone: America/New_York
    latitude: 40.78
    longitude: -73.97
  - code: ALB
    name: Albany
    state: NY
    timezone: America/New_York
    latitude: 42.65
    longitude: -73.75
interfaces:
  - id: CENTRAL-EAST
    from_zone: NYCW
    to_zone: CAPITL
    transfer_limit_mw: 3150
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestLoadSeedFile(t *testing.T) {
	seed, err := LoadSeedFile(writeSeed(t, seedYAML))
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	zones, regions, interfaces, err := seed.Entities()
	if err != nil {
		t.Fatalf("entities: %v", err)
	}
	if len(zones) != 2 || len(regions) != 2 || len(interfaces) != 1 {
		t.Fatalf("unexpected counts: zones=%d regions=%d interfaces=%d", len(zones), len(regions), len(interfaces))
	}
	if interfaces[0].TransferLimitMW == nil || *interfaces[0].TransferLimitMW != 3150 {
		t.Fatalf("expected transfer limit 3150, got %v", interfaces[0].TransferLimitMW)
	}
}

func TestLoadSeedFile_RejectsMissingFields(t *testing.T) {
	bad := `zones:
  - code: NYCW
    name: N.Y.C. West
    state: New York
    iso_rto: NYISO
    region: NYC
regions:
  - code: NYC
    name: New York City
    state: NY
`
	if _, err := LoadSeedFile(writeSeed(t, bad)); err == nil {
		t.Fatal("expected validation error for bad state code")
	}
}

func TestSeedEntities_RejectsDanglingRegion(t *testing.T) {
	seed, err := LoadSeedFile(writeSeed(t, seedYAML))
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	seed.Zones[0].Region = "NOPE"
	if _, _, _, err := seed.Entities(); err == nil {
		t.Fatal("expected error for zone referencing unknown region")
	}
}
