package wrap

import "context"

// NewSlotStore returns a concrete slot store for the requested driver,
// wrapped with any configured shaping and encryption layers. Construction
// failures yield a store that preserves the driver identity and surfaces the
// error on every call, so callers can defer error handling to first use.
// @group Constructors
//
// Example: select driver explicitly
//
//	ctx := context.Background()
//	store := wrap.NewSlotStore(ctx, wrap.SlotStoreConfig{
//		Driver: wrap.DriverMemory,
//	})
//	fmt.Println(store.Driver()) // memory
func NewSlotStore(ctx context.Context, cfg SlotStoreConfig) SlotStore {
	cfg = cfg.withDefaults()

	var (
		store SlotStore
		err   error
	)
	switch cfg.Driver {
	case DriverMemcached:
		store = newMemcachedStore(cfg.MemcachedAddrs, cfg.Prefix)
	case DriverRedis:
		store = newRedisStore(cfg.RedisClient, cfg.Prefix)
	case DriverNATS:
		store = newNATSStore(cfg.NATSKeyValue, cfg.Prefix)
	case DriverDynamo:
		store, err = newDynamoStore(ctx, cfg)
	case DriverSQL:
		store, err = newSQLStore(cfg)
	case DriverFile:
		store = newFileStore(cfg.FileDir)
	case DriverNull:
		store = newNullStore()
	default:
		store = newMemoryStore()
	}
	if err != nil {
		return &errorStore{driver: cfg.Driver, err: err}
	}

	store = newShapingStore(store, cfg.Codec, cfg.MaxValueBytes)
	store, err = newEncryptingStore(store, cfg.EncryptionKey)
	if err != nil {
		return &errorStore{driver: cfg.Driver, err: err}
	}
	return store
}

// NewSlotStoreWith builds a slot store using a driver and a set of functional
// options. Required data (e.g., a Redis client) must be provided via options
// when needed.
// @group Constructors
//
// Example: redis store (options)
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
//	store := wrap.NewSlotStoreWith(ctx, wrap.DriverRedis,
//		wrap.WithRedisClient(redisClient),
//		wrap.WithPrefix("app"),
//	)
//	fmt.Println(store.Driver()) // redis
func NewSlotStoreWith(ctx context.Context, driver Driver, opts ...StoreOption) SlotStore {
	cfg := SlotStoreConfig{Driver: driver}
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	return NewSlotStore(ctx, cfg)
}

// NewMemorySlotStore is a convenience for an in-process store.
// @group Constructors
func NewMemorySlotStore(ctx context.Context, opts ...StoreOption) SlotStore {
	return NewSlotStoreWith(ctx, DriverMemory, opts...)
}

// NewFileSlotStore is a convenience for a filesystem-backed store.
// @group Constructors
func NewFileSlotStore(ctx context.Context, dir string, opts ...StoreOption) SlotStore {
	return NewSlotStoreWith(ctx, DriverFile, append([]StoreOption{WithFileDir(dir)}, opts...)...)
}

// NewMemcachedSlotStore is a convenience for a memcached-backed store.
// @group Constructors
func NewMemcachedSlotStore(ctx context.Context, addrs []string, opts ...StoreOption) SlotStore {
	return NewSlotStoreWith(ctx, DriverMemcached, append([]StoreOption{WithMemcachedAddrs(addrs...)}, opts...)...)
}

// NewRedisSlotStore is a convenience for a redis-backed store. The client is required.
// @group Constructors
func NewRedisSlotStore(ctx context.Context, client RedisClient, opts ...StoreOption) SlotStore {
	return NewSlotStoreWith(ctx, DriverRedis, append([]StoreOption{WithRedisClient(client)}, opts...)...)
}

// NewNATSSlotStore is a convenience for a NATS key-value backed store.
// @group Constructors
func NewNATSSlotStore(ctx context.Context, kv NATSKeyValue, opts ...StoreOption) SlotStore {
	return NewSlotStoreWith(ctx, DriverNATS, append([]StoreOption{WithNATSKeyValue(kv)}, opts...)...)
}

// NewDynamoSlotStore is a convenience for a DynamoDB-backed store.
// @group Constructors
func NewDynamoSlotStore(ctx context.Context, opts ...StoreOption) SlotStore {
	return NewSlotStoreWith(ctx, DriverDynamo, opts...)
}

// NewSQLSlotStore is a convenience for a database/sql-backed store.
// @group Constructors
func NewSQLSlotStore(ctx context.Context, driverName, dsn string, opts ...StoreOption) SlotStore {
	return NewSlotStoreWith(ctx, DriverSQL, append([]StoreOption{WithSQL(driverName, dsn, "")}, opts...)...)
}
