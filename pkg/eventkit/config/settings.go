package config

// Adapter kinds understood by BusSettingsFrom.
const (
	AdapterMemory  = "memory"  // in-memory registry, no adapter installed
	AdapterChannel = "channel" // in-process channel transport
	AdapterRedis   = "redis"   // Redis pub/sub transport
)

// BusSettings is the application-level wiring for an event bus,
// extracted from a Config. Zero values fall back to sensible defaults.
type BusSettings struct {
	// Adapter selects the transport: "memory", "channel", or "redis".
	Adapter string

	// ChannelBuffer is the per-subscription buffer size for the channel
	// adapter.
	ChannelBuffer int

	// RedisAddr and RedisPassword configure the redis adapter's client.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ChannelPrefix namespaces the redis channels.
	ChannelPrefix string

	// JournalPath, when set, enables the SQLite event journal.
	JournalPath string
}

// BusSettingsFrom extracts bus settings from a loaded Config.
//
// Recognized keys: adapter, channel_buffer, redis_addr, redis_password,
// redis_db, channel_prefix, journal_path.
func BusSettingsFrom(c Config) BusSettings {
	return BusSettings{
		Adapter:       c.String("adapter", AdapterMemory),
		ChannelBuffer: c.Int("channel_buffer", 256),
		RedisAddr:     c.String("redis_addr", "localhost:6379"),
		RedisPassword: c.String("redis_password", ""),
		RedisDB:       c.Int("redis_db", 0),
		ChannelPrefix: c.String("channel_prefix", "events:"),
		JournalPath:   c.String("journal_path", ""),
	}
}
