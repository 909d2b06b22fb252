package wrap

import "testing"

func TestConfigWithDefaults(t *testing.T) {
	cfg := SlotStoreConfig{}.withDefaults()
	if cfg.Driver != DriverMemory {
		t.Fatalf("driver = %q", cfg.Driver)
	}
	if cfg.Prefix != defaultSlotPrefix {
		t.Fatalf("prefix = %q", cfg.Prefix)
	}
	if cfg.FileDir == "" {
		t.Fatalf("file dir not defaulted")
	}
	if cfg.DynamoTable != "wrap_slots" || cfg.SQLTable != "wrap_slots" {
		t.Fatalf("tables not defaulted: %q %q", cfg.DynamoTable, cfg.SQLTable)
	}
}

func TestConfigWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := SlotStoreConfig{
		Driver:      DriverRedis,
		Prefix:      "app",
		FileDir:     "/var/lib/slots",
		DynamoTable: "custom",
		SQLTable:    "slots",
	}.withDefaults()
	if cfg.Driver != DriverRedis || cfg.Prefix != "app" || cfg.FileDir != "/var/lib/slots" {
		t.Fatalf("explicit values overridden: %+v", cfg)
	}
	if cfg.DynamoTable != "custom" || cfg.SQLTable != "slots" {
		t.Fatalf("explicit tables overridden: %+v", cfg)
	}
}
