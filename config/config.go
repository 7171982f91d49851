// Package config loads cassession settings from YAML and the environment and
// wires a ready Store from them.
//
// Environment variables override the file. They use the prefix (default
// CASSESSION_), with "__" between nesting levels:
//
//	CASSESSION_BACKEND=redis
//	CASSESSION_REDIS__ADDRS=10.0.0.1:6379
//	CASSESSION_LOCAL__MAX_COST=268435456
package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	BackendRedis = "redis"
	BackendLocal = "local"

	ProviderBigcache  = "bigcache"
	ProviderRistretto = "ristretto"

	CodecJSON     = "json"
	CodecMsgpack  = "msgpack"
	CodecCBOR     = "cbor"
	CodecStructpb = "structpb"

	IDsUUID   = "uuid"
	IDsULID   = "ulid"
	IDsRandom = "random"
)

type Config struct {
	Namespace       string        `koanf:"namespace"`
	KeyPrefix       string        `koanf:"key_prefix"`
	TTL             time.Duration `koanf:"ttl"`
	Strict          bool          `koanf:"strict"`
	Disabled        bool          `koanf:"disabled"`
	Codec           string        `koanf:"codec"`
	MaxSessionBytes int           `koanf:"max_session_bytes"` // 0 = unbounded
	IDs             string        `koanf:"ids"`
	IDPrefix        string        `koanf:"id_prefix"` // ulid only

	Backend string        `koanf:"backend"`
	Redis   RedisConfig   `koanf:"redis"`
	Local   LocalConfig   `koanf:"local"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

type RedisConfig struct {
	Addrs        []string      `koanf:"addrs"`
	Username     string        `koanf:"username"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	MasterName   string        `koanf:"master_name"` // sentinel
	PoolSize     int           `koanf:"pool_size"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type LocalConfig struct {
	Provider string `koanf:"provider"`

	// bigcache
	Shards             int           `koanf:"shards"`
	CleanWindow        time.Duration `koanf:"clean_window"`
	MaxEntrySize       int           `koanf:"max_entry_size"`
	HardMaxCacheSizeMB int           `koanf:"hard_max_cache_size_mb"`

	// ristretto
	NumCounters int64 `koanf:"num_counters"`
	MaxCost     int64 `koanf:"max_cost"`
	BufferItems int64 `koanf:"buffer_items"`

	GenCleanupInterval time.Duration `koanf:"gen_cleanup_interval"`
	GenRetention       time.Duration `koanf:"gen_retention"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, console
}

type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Namespace string `koanf:"namespace"`
}

// Default returns the settings used for anything the sources leave unset.
func Default() Config {
	return Config{
		TTL:     30 * time.Minute,
		Codec:   CodecJSON,
		IDs:     IDsUUID,
		Backend: BackendRedis,
		Redis: RedisConfig{
			Addrs:       []string{"localhost:6379"},
			DialTimeout: 5 * time.Second,
		},
		Local: LocalConfig{
			Provider:    ProviderRistretto,
			NumCounters: 1e6,
			MaxCost:     256 << 20,
			BufferItems: 64,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

var ErrInvalid = errors.New("config: invalid")

func (c Config) Validate() error {
	if c.TTL < 0 {
		return fmt.Errorf("%w: ttl must not be negative", ErrInvalid)
	}
	switch c.Codec {
	case CodecJSON, CodecMsgpack, CodecCBOR, CodecStructpb:
	default:
		return fmt.Errorf("%w: unknown codec %q", ErrInvalid, c.Codec)
	}
	switch c.IDs {
	case IDsUUID, IDsULID, IDsRandom:
	default:
		return fmt.Errorf("%w: unknown id generator %q", ErrInvalid, c.IDs)
	}
	switch c.Backend {
	case BackendRedis:
		if len(c.Redis.Addrs) == 0 {
			return fmt.Errorf("%w: redis.addrs is empty", ErrInvalid)
		}
	case BackendLocal:
		switch c.Local.Provider {
		case ProviderBigcache:
		case ProviderRistretto:
			if c.Local.NumCounters <= 0 || c.Local.MaxCost <= 0 || c.Local.BufferItems <= 0 {
				return fmt.Errorf("%w: ristretto needs num_counters, max_cost and buffer_items", ErrInvalid)
			}
		default:
			return fmt.Errorf("%w: unknown local provider %q", ErrInvalid, c.Local.Provider)
		}
		if c.Local.GenRetention > 0 && c.TTL > 0 && c.Local.GenRetention <= c.TTL {
			return fmt.Errorf("%w: local.gen_retention must exceed ttl", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, c.Backend)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}
