package wrap

import (
	"os"
	"path/filepath"
)

const defaultSlotPrefix = "wrap"

func defaultFileDir() string {
	return filepath.Join(os.TempDir(), "wrap-slots")
}

// SlotStoreConfig controls how a SlotStore is constructed.
type SlotStoreConfig struct {
	Driver Driver

	// Prefix scopes keys on shared backends (e.g. redis, sql, dynamo).
	Prefix string

	// FileDir controls where the file driver stores slot records.
	FileDir string

	// MemcachedAddrs lists memcached servers for DriverMemcached;
	// defaults to 127.0.0.1:11211.
	MemcachedAddrs []string

	// RedisClient is required when DriverRedis is used.
	RedisClient RedisClient

	// NATSKeyValue is required when DriverNATS is used.
	NATSKeyValue NATSKeyValue

	// DynamoClient may be supplied directly; when nil the dynamo driver
	// builds one from region/endpoint.
	DynamoClient   DynamoAPI
	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string

	// SQL driver settings; driver name is one of "mysql", "pgx", "postgres",
	// or "sqlite".
	SQLDriverName string
	SQLDSN        string
	SQLTable      string

	// Codec optionally compresses slot payloads before they reach the store.
	Codec CompressionCodec

	// MaxValueBytes rejects oversized payloads when > 0.
	MaxValueBytes int

	// EncryptionKey enables AES-GCM payload encryption when non-empty.
	// Must be 16, 24, or 32 bytes.
	EncryptionKey []byte
}

func (c SlotStoreConfig) withDefaults() SlotStoreConfig {
	if c.Driver == "" {
		c.Driver = DriverMemory
	}
	if c.Prefix == "" {
		c.Prefix = defaultSlotPrefix
	}
	if c.FileDir == "" {
		c.FileDir = defaultFileDir()
	}
	if c.DynamoTable == "" {
		c.DynamoTable = "wrap_slots"
	}
	if c.SQLTable == "" {
		c.SQLTable = "wrap_slots"
	}
	return c
}
