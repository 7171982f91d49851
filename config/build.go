package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/cassession"
	"github.com/unkn0wn-root/cassession/backend"
	"github.com/unkn0wn-root/cassession/backend/local"
	bredis "github.com/unkn0wn-root/cassession/backend/redis"
	c "github.com/unkn0wn-root/cassession/codec"
	zlog "github.com/unkn0wn-root/cassession/log/zerolog"
	"github.com/unkn0wn-root/cassession/promhooks"
	pr "github.com/unkn0wn-root/cassession/provider"
	"github.com/unkn0wn-root/cassession/provider/bigcache"
	"github.com/unkn0wn-root/cassession/provider/ristretto"
	"github.com/unkn0wn-root/cassession/sid"
)

// Runtime is a Store together with what it owns.
type Runtime struct {
	Store  *cassession.Store
	Cache  *cassession.CasCache[cassession.Data]
	Logger cassession.Logger
}

// Close releases the backend (and the redis client Build created).
func (r *Runtime) Close(ctx context.Context) error {
	return r.Cache.Close(ctx)
}

type BuildOptions struct {
	LogOutput  io.Writer             // nil => os.Stderr
	Registerer prometheus.Registerer // nil => prometheus.DefaultRegisterer
	Notifier   cassession.Notifier   // nil => report through the logger
	Hooks      cassession.Hooks      // combined with metrics hooks when enabled
}

func Build(cfg Config, opts BuildOptions) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log, opts.LogOutput)

	codec, err := newCodec(cfg)
	if err != nil {
		return nil, err
	}
	ids := newIDs(cfg)

	hooks := opts.Hooks
	if cfg.Metrics.Enabled {
		ph := promhooks.New(promhooks.Options{Namespace: cfg.Metrics.Namespace, Registerer: opts.Registerer})
		if hooks != nil {
			hooks = multiHooks{hooks, ph}
		} else {
			hooks = ph
		}
	}

	be, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	cache, err := cassession.NewCasCache(cassession.CacheOptions[cassession.Data]{
		Backend:    be,
		Codec:      codec,
		Namespace:  cfg.Namespace,
		Logger:     logger,
		Hooks:      hooks,
		DefaultTTL: cfg.TTL,
		Strict:     cfg.Strict,
		Disabled:   cfg.Disabled,
	})
	if err != nil {
		_ = be.Close(context.Background())
		return nil, err
	}

	var notifier cassession.Notifier = cassession.LogNotifier{L: logger}
	if opts.Notifier != nil {
		notifier = opts.Notifier
	}
	store, err := cassession.NewStore(cassession.StoreOptions{
		Cache:       cache,
		IDGenerator: ids,
		KeyPrefix:   cfg.KeyPrefix,
		TTL:         cfg.TTL,
		Logger:      logger,
		Notifier:    notifier,
		Hooks:       hooks,
	})
	if err != nil {
		_ = cache.Close(context.Background())
		return nil, err
	}
	return &Runtime{Store: store, Cache: cache, Logger: logger}, nil
}

func newLogger(cfg LogConfig, out io.Writer) cassession.Logger {
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	return zlog.New(zerolog.New(out).Level(level).With().Timestamp().Logger())
}

func newCodec(cfg Config) (c.Codec[cassession.Data], error) {
	var inner c.Codec[cassession.Data]
	switch cfg.Codec {
	case CodecMsgpack:
		inner = c.Msgpack[cassession.Data]{}
	case CodecCBOR:
		cb, err := c.NewCBOR[cassession.Data]()
		if err != nil {
			return nil, fmt.Errorf("config: cbor codec: %w", err)
		}
		inner = cb
	case CodecStructpb:
		inner = c.Structpb{}
	default:
		inner = c.JSON[cassession.Data]{}
	}
	if cfg.MaxSessionBytes > 0 {
		return c.LimitCodec[cassession.Data]{Inner: inner, MaxEncode: cfg.MaxSessionBytes}, nil
	}
	return inner, nil
}

func newIDs(cfg Config) cassession.IDGenerator {
	switch cfg.IDs {
	case IDsULID:
		return sid.ULID{Prefix: cfg.IDPrefix}
	case IDsRandom:
		return sid.Random{}
	default:
		return sid.UUID{}
	}
}

func newBackend(cfg Config) (backend.Backend, error) {
	if cfg.Backend == BackendRedis {
		rc := cfg.Redis
		client := goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs:        rc.Addrs,
			Username:     rc.Username,
			Password:     rc.Password,
			DB:           rc.DB,
			MasterName:   rc.MasterName,
			PoolSize:     rc.PoolSize,
			DialTimeout:  rc.DialTimeout,
			ReadTimeout:  rc.ReadTimeout,
			WriteTimeout: rc.WriteTimeout,
		})
		be, err := bredis.New(bredis.Config{Client: client, CloseClient: true})
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return be, nil
	}

	lc := cfg.Local
	var (
		p   pr.Provider
		err error
	)
	switch lc.Provider {
	case ProviderBigcache:
		life := cfg.TTL
		if life <= 0 {
			life = cassession.DefaultSessionTTL
		}
		p, err = bigcache.New(bigcache.Config{
			LifeWindow:         life,
			CleanWindow:        lc.CleanWindow,
			Shards:             lc.Shards,
			MaxEntrySize:       lc.MaxEntrySize,
			HardMaxCacheSizeMB: lc.HardMaxCacheSizeMB,
		})
	case ProviderRistretto:
		p, err = ristretto.New(ristretto.Config{
			NumCounters: lc.NumCounters,
			MaxCost:     lc.MaxCost,
			BufferItems: lc.BufferItems,
		})
	default:
		err = fmt.Errorf("%w: unknown local provider %q", ErrInvalid, lc.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("config: local provider: %w", err)
	}
	b, err := local.New(local.Options{
		Provider:        p,
		CleanupInterval: lc.GenCleanupInterval,
		GenRetention:    lc.GenRetention,
		ComputeSetCost:  func(_ string, raw []byte) int64 { return int64(len(raw)) },
	})
	if err != nil {
		_ = p.Close(context.Background())
		return nil, err
	}
	return b, nil
}

type multiHooks []cassession.Hooks

func (m multiHooks) CacheOp(ev cassession.Event) {
	for _, h := range m {
		h.CacheOp(ev)
	}
}

func (m multiHooks) SessionAnomaly(key, reason string, tok cassession.Token) {
	for _, h := range m {
		h.SessionAnomaly(key, reason, tok)
	}
}

var _ cassession.Hooks = multiHooks(nil)
