package wrap

// StoreOption mutates SlotStoreConfig when constructing a slot store.
type StoreOption func(SlotStoreConfig) SlotStoreConfig

// WithPrefix sets the key prefix for shared backends (e.g., redis).
func WithPrefix(prefix string) StoreOption {
	return func(cfg SlotStoreConfig) SlotStoreConfig {
		cfg.Prefix = prefix
		return cfg
	}
}

// WithFileDir sets the directory used by the file driver.
func WithFileDir(dir string) StoreOption {
	return func(cfg SlotStoreConfig) SlotStoreConfig {
		cfg.FileDir = dir
		return cfg
	}
}

// WithMemcachedAddrs sets the memcached server addresses for DriverMemcached.
func WithMemcachedAddrs(addrs ...string) StoreOption {
	return func(cfg SlotStoreConfig) SlotStoreConfig {
		cfg.MemcachedAddrs = addrs
		return cfg
	}
}

// WithRedisClient sets the redis client; required when using DriverRedis.
func WithRedisClient(client RedisClient) StoreOption {
	return func(cfg SlotStoreConfig) SlotStoreConfig {
		cfg.RedisClient = client
		return cfg
	}
}

// WithNATSKeyValue sets the NATS key-value bucket; required when using DriverNATS.
func WithNATSKeyValue(kv NATSKeyValue) StoreOption {
	return func(cfg SlotStoreConfig) SlotStoreConfig {
		cfg.NATSKeyValue = kv
		return cfg
	}
}

// WithDynamoClient supplies a prebuilt DynamoDB client.
func WithDynamoClient(client DynamoAPI) StoreOption {
	return func(cfg SlotStoreConfig) SlotStoreConfig {
		cfg.DynamoClient = client
		return cfg
	}
}

// WithDynamoTable overrides the DynamoDB table name.
func WithDynamoTable(table string) StoreOption {
	return func(cfg SlotStoreConfig) SlotStoreConfig {
		cfg.DynamoTable = table
		return cfg
	}
}

// WithDynamoRegion sets the AWS region used when building a client.
func WithDynamoRegion(region string) StoreOption {
	return func(cfg SlotStoreConfig) SlotStoreConfig {
		cfg.DynamoRegion = region
		return cfg
	}
}

// WithDynamoEndpoint points the dynamo driver at a custom endpoint
// (e.g., DynamoDB Local).
func WithDynamoEndpoint(endpoint string) StoreOption {
	return func(cfg SlotStoreConfig) SlotStoreConfig {
		cfg.DynamoEndpoint = endpoint
		return cfg
	}
}

// WithSQL sets the database/sql driver name, DSN, and optional table.
func WithSQL(driverName, dsn, table string) StoreOption {
	return func(cfg SlotStoreConfig) SlotStoreConfig {
		cfg.SQLDriverName = driverName
		cfg.SQLDSN = dsn
		if table != "" {
			cfg.SQLTable = table
		}
		return cfg
	}
}

// WithCompression enables payload compression for slot values.
func WithCompression(codec CompressionCodec) StoreOption {
	return func(cfg SlotStoreConfig) SlotStoreConfig {
		cfg.Codec = codec
		return cfg
	}
}

// WithMaxValueBytes rejects slot payloads larger than max.
func WithMaxValueBytes(max int) StoreOption {
	return func(cfg SlotStoreConfig) SlotStoreConfig {
		cfg.MaxValueBytes = max
		return cfg
	}
}

// WithEncryptionKey enables AES-GCM encryption of slot payloads.
func WithEncryptionKey(key []byte) StoreOption {
	return func(cfg SlotStoreConfig) SlotStoreConfig {
		cfg.EncryptionKey = key
		return cfg
	}
}
