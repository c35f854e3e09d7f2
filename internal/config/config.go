// Package config defines HiveMindDB's single Config struct and the
// flags > env > defaults precedence the serve command applies it with
// (spec.md §6).
package config

import (
	"context"
	"time"
)

type contextKey struct{}

// WithContext returns a new context carrying cfg.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config stored by WithContext, or nil.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

// Config holds every tunable of the running process. Flags and env vars
// populate it in internal/cmd/serve; defaults come from DefaultConfig.
type Config struct {
	// Network
	ListenAddr string

	// DataDir holds snapshot.json and its .tmp sibling (spec.md §4.9).
	DataDir          string
	SnapshotInterval time.Duration

	// EmbeddingModel is "provider:model", e.g. "openai:text-embedding-3-small"
	// or "local:hashbag". Empty disables embedding (spec.md §7).
	EmbeddingModel  string
	EmbeddingAPIKey string

	// LLM-backed Extractor wiring; HiveMindDB ships no built-in Extractor,
	// these fields only configure an external one supplied by deployment
	// tooling outside this module (spec.md §1, Non-goals).
	LLMProvider string
	LLMAPIKey   string
	LLMModel    string

	// Replication
	EnableReplication bool
	ReplicationType   string // "nats", "grpc", or "noop" (default)
	NATSURL           string
	GRPCTargetAddr    string

	// RTDBURL is the connection URL for the durable Store backend chosen
	// by StoreType (and for the pgvector VectorType). Its scheme does not
	// select a backend.
	RTDBURL string

	// StoreType selects the Store backend ("memory" default, "postgres",
	// "mongo").
	StoreType string

	// VectorType selects an optional external embedding-index backend
	// ("", "pgvector", "qdrant"); "" keeps the in-process embedindex.
	VectorType string

	// QdrantURL and QdrantCollection configure the qdrant VectorType;
	// QdrantAPIKey is sent as per-RPC metadata when set. EmbeddingDimension
	// must match the configured Embedder's Dimension() so the qdrant
	// migrator can create the collection with the right vector size.
	QdrantURL         string
	QdrantCollection  string
	QdrantAPIKey      string
	EmbeddingDimension int

	// CacheType selects the search-result cache backend ("noop" default,
	// "ristretto", "redis").
	CacheType string
	RedisURL  string
	// CacheTTL bounds how long a cached search result is trusted even if
	// the store's write generation hasn't advanced (0 uses the backend's
	// own default).
	CacheTTL time.Duration

	// EncryptType selects the snapshot-at-rest encryption provider
	// ("plain" default, "dek", "vault", "kms").
	EncryptType       string
	EncryptionKey     string
	VaultAddr         string
	VaultTransitKey   string
	AWSKMSKeyID       string

	// S3SnapshotBucket, if set, uploads snapshot.json there after each
	// successful local write (spec.md §11).
	S3SnapshotBucket string
	S3SnapshotPrefix string

	// BusCapacity is the per-subscriber ring buffer size (spec.md §4.7).
	BusCapacity int

	// WSWriteTimeout bounds how long a WebSocket fan-out write may block
	// before the client is evicted as slow (spec.md §4.8).
	WSWriteTimeout time.Duration

	// MaxTraversalDepth bounds graph traversal (spec.md §4.5).
	MaxTraversalDepth int

	// DefaultSearchLimit is used when a search request omits "limit".
	DefaultSearchLimit int

	// Score-fusion weights (Open Question (a)): hard-coded to 0.7/0.3 in
	// internal/search, but carried here so a future release can expose
	// them without a breaking config change.
	SearchKeywordWeight float64
	SearchVectorWeight  float64

	// Security
	APIKeys      map[string]string // key value -> agent/client id
	OIDCIssuer   string
	OIDCAudience string

	// CORSOrigins is a comma-separated allow-list; empty disables the
	// CORS middleware entirely.
	CORSOrigins string

	// MaxRequestBodyBytes caps request body size; 0 uses the default.
	MaxRequestBodyBytes int64

	// DrainTimeout bounds graceful shutdown (spec.md §4.11).
	DrainTimeout time.Duration

	// EnableAccessPolicy turns on the OPA-backed ownership policy
	// (internal/policy); PolicyDir overrides the built-in default
	// authz.rego. Disabled by default so the API-key/JWT gate remains
	// the only access control unless an operator opts in.
	EnableAccessPolicy bool
	PolicyDir          string
}

// defaultMaxBodySize caps request bodies when MaxRequestBodyBytes is unset.
const defaultMaxBodySize = 10 << 20 // 10 MiB

// MaxBodySize returns the configured request body cap, falling back to
// defaultMaxBodySize when unset.
func (c *Config) MaxBodySize() int64 {
	if c.MaxRequestBodyBytes > 0 {
		return c.MaxRequestBodyBytes
	}
	return defaultMaxBodySize
}

// DefaultConfig returns a Config with HiveMindDB's defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:          ":8080",
		DataDir:             "./data",
		SnapshotInterval:    5 * time.Minute,
		EmbeddingModel:      "local:hashbag",
		ReplicationType:     "noop",
		StoreType:           "memory",
		CacheType:           "noop",
		EncryptType:         "plain",
		BusCapacity:         256,
		WSWriteTimeout:      5 * time.Second,
		MaxTraversalDepth:   10,
		DefaultSearchLimit:  10,
		SearchKeywordWeight: 0.3,
		SearchVectorWeight:  0.7,
		DrainTimeout:        30 * time.Second,
		APIKeys:             map[string]string{},
	}
}
