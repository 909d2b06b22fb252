package wrap

// Driver identifies a slot store backend.
type Driver string

const (
	DriverNull      Driver = "null"
	DriverFile      Driver = "file"
	DriverMemory    Driver = "memory"
	DriverMemcached Driver = "memcached"
	DriverRedis     Driver = "redis"
	DriverNATS      Driver = "nats"
	DriverDynamo    Driver = "dynamodb"
	DriverSQL       Driver = "sql"
)
