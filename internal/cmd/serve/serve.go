package serve

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/nodenestor/hiveminddb/internal/config"
	registryembed "github.com/nodenestor/hiveminddb/internal/registry/embed"
	registryencrypt "github.com/nodenestor/hiveminddb/internal/registry/encrypt"
	registryreplication "github.com/nodenestor/hiveminddb/internal/registry/replication"
)

// Command returns the serve sub-command: start the HTTP+WebSocket API and
// block until the context is cancelled (spec.md §6).
func Command() *cli.Command {
	cfg := config.DefaultConfig()
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the hiveminddb HTTP and WebSocket API",
		CustomHelpTemplate: cli.CommandHelpTemplate + `NOTES:
   API key authentication maps each key to an agent id via --api-keys,
   e.g. --api-keys agent-a=key1,key2;agent-b=key3
`,
		Flags: flags(&cfg),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg.APIKeys = parseAPIKeys(cmd.String("api-keys"))
			return run(config.WithContext(ctx, &cfg), cfg)
		},
	}
}

func flags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		// ── Server ────────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "listen-addr",
			Category:    "Server:",
			Sources:     cli.EnvVars("HIVEMINDDB_LISTEN_ADDR"),
			Destination: &cfg.ListenAddr,
			Value:       cfg.ListenAddr,
			Usage:       "HTTP listen address (host:port)",
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Category:    "Server:",
			Sources:     cli.EnvVars("HIVEMINDDB_DATA_DIR"),
			Destination: &cfg.DataDir,
			Value:       cfg.DataDir,
			Usage:       "Directory holding snapshot.json",
		},
		&cli.DurationFlag{
			Name:        "snapshot-interval",
			Category:    "Server:",
			Sources:     cli.EnvVars("HIVEMINDDB_SNAPSHOT_INTERVAL"),
			Destination: &cfg.SnapshotInterval,
			Value:       cfg.SnapshotInterval,
			Usage:       "How often to write a snapshot to disk",
		},
		&cli.StringFlag{
			Name:        "cors-origins",
			Category:    "Server:",
			Sources:     cli.EnvVars("HIVEMINDDB_CORS_ORIGINS"),
			Destination: &cfg.CORSOrigins,
			Usage:       "Comma-separated allowed CORS origins; empty disables CORS",
		},
		&cli.Int64Flag{
			Name:        "max-request-body-bytes",
			Category:    "Server:",
			Sources:     cli.EnvVars("HIVEMINDDB_MAX_REQUEST_BODY_BYTES"),
			Destination: &cfg.MaxRequestBodyBytes,
			Usage:       "Maximum request body size in bytes (default 10MiB)",
		},
		&cli.DurationFlag{
			Name:        "drain-timeout",
			Category:    "Server:",
			Sources:     cli.EnvVars("HIVEMINDDB_DRAIN_TIMEOUT"),
			Destination: &cfg.DrainTimeout,
			Value:       cfg.DrainTimeout,
			Usage:       "Graceful shutdown deadline",
		},

		// ── Storage ───────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "rtdb-url",
			Category:    "Storage:",
			Sources:     cli.EnvVars("HIVEMINDDB_RTDB_URL"),
			Destination: &cfg.RTDBURL,
			Usage:       "Connection URL for store-type=postgres|mongo and vector-type=pgvector",
		},
		&cli.StringFlag{
			Name:        "store-type",
			Category:    "Storage:",
			Sources:     cli.EnvVars("HIVEMINDDB_STORE_TYPE"),
			Destination: &cfg.StoreType,
			Value:       cfg.StoreType,
			Usage:       "Store backend override (memory|postgres|mongo)",
		},
		&cli.StringFlag{
			Name:        "vector-type",
			Category:    "Storage:",
			Sources:     cli.EnvVars("HIVEMINDDB_VECTOR_TYPE"),
			Destination: &cfg.VectorType,
			Usage:       "External vector index backend (\"\"|pgvector|qdrant)",
		},
		&cli.StringFlag{
			Name:        "qdrant-url",
			Category:    "Storage:",
			Sources:     cli.EnvVars("HIVEMINDDB_QDRANT_URL"),
			Destination: &cfg.QdrantURL,
			Usage:       "Qdrant gRPC address for vector-type=qdrant",
		},
		&cli.StringFlag{
			Name:        "qdrant-collection",
			Category:    "Storage:",
			Sources:     cli.EnvVars("HIVEMINDDB_QDRANT_COLLECTION"),
			Destination: &cfg.QdrantCollection,
			Usage:       "Qdrant collection name (default hiveminddb-memories)",
		},
		&cli.StringFlag{
			Name:        "qdrant-api-key",
			Category:    "Storage:",
			Sources:     cli.EnvVars("HIVEMINDDB_QDRANT_API_KEY"),
			Destination: &cfg.QdrantAPIKey,
			Usage:       "Qdrant API key, if required",
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Category:    "Storage:",
			Sources:     cli.EnvVars("HIVEMINDDB_EMBEDDING_DIMENSION"),
			Destination: &cfg.EmbeddingDimension,
			Usage:       "Vector dimension for qdrant collection creation (defaults to 1536)",
		},
		&cli.StringFlag{
			Name:        "cache-type",
			Category:    "Storage:",
			Sources:     cli.EnvVars("HIVEMINDDB_CACHE_TYPE"),
			Destination: &cfg.CacheType,
			Value:       cfg.CacheType,
			Usage:       "Search result cache backend (noop|ristretto|redis)",
		},
		&cli.StringFlag{
			Name:        "redis-url",
			Category:    "Storage:",
			Sources:     cli.EnvVars("HIVEMINDDB_REDIS_URL"),
			Destination: &cfg.RedisURL,
			Usage:       "Redis connection URL for cache-type=redis",
		},
		&cli.DurationFlag{
			Name:        "cache-ttl",
			Category:    "Storage:",
			Sources:     cli.EnvVars("HIVEMINDDB_CACHE_TTL"),
			Destination: &cfg.CacheTTL,
			Usage:       "How long a cached search result is trusted (0 uses the backend default)",
		},

		// ── Embedding ─────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "embedding-model",
			Category:    "Embedding:",
			Sources:     cli.EnvVars("HIVEMINDDB_EMBEDDING_MODEL"),
			Destination: &cfg.EmbeddingModel,
			Value:       cfg.EmbeddingModel,
			Usage:       "\"provider:model\" (" + strings.Join(registryembed.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "embedding-api-key",
			Category:    "Embedding:",
			Sources:     cli.EnvVars("HIVEMINDDB_EMBEDDING_API_KEY", "OPENAI_API_KEY"),
			Destination: &cfg.EmbeddingAPIKey,
			Usage:       "API key for the embedding provider",
		},

		// ── Extraction ────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "llm-provider",
			Category:    "Extraction:",
			Sources:     cli.EnvVars("HIVEMINDDB_LLM_PROVIDER"),
			Destination: &cfg.LLMProvider,
			Usage:       "External extractor's LLM provider name (informational; no built-in Extractor ships)",
		},
		&cli.StringFlag{
			Name:        "llm-api-key",
			Category:    "Extraction:",
			Sources:     cli.EnvVars("HIVEMINDDB_LLM_API_KEY"),
			Destination: &cfg.LLMAPIKey,
			Usage:       "External extractor's LLM API key",
		},
		&cli.StringFlag{
			Name:        "llm-model",
			Category:    "Extraction:",
			Sources:     cli.EnvVars("HIVEMINDDB_LLM_MODEL"),
			Destination: &cfg.LLMModel,
			Usage:       "External extractor's LLM model name",
		},

		// ── Replication ───────────────────────────────────────────
		&cli.BoolFlag{
			Name:        "enable-replication",
			Category:    "Replication:",
			Sources:     cli.EnvVars("HIVEMINDDB_ENABLE_REPLICATION"),
			Destination: &cfg.EnableReplication,
			Usage:       "Publish write events to the configured replication sink",
		},
		&cli.StringFlag{
			Name:        "replication-type",
			Category:    "Replication:",
			Sources:     cli.EnvVars("HIVEMINDDB_REPLICATION_TYPE"),
			Destination: &cfg.ReplicationType,
			Value:       cfg.ReplicationType,
			Usage:       "Replication sink (" + strings.Join(registryreplication.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "nats-url",
			Category:    "Replication:",
			Sources:     cli.EnvVars("HIVEMINDDB_NATS_URL"),
			Destination: &cfg.NATSURL,
			Usage:       "NATS server URL for replication-type=nats",
		},
		&cli.StringFlag{
			Name:        "grpc-target-addr",
			Category:    "Replication:",
			Sources:     cli.EnvVars("HIVEMINDDB_GRPC_TARGET_ADDR"),
			Destination: &cfg.GRPCTargetAddr,
			Usage:       "Peer address for replication-type=grpc",
		},

		// ── Encryption ────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "encrypt-type",
			Category:    "Encryption:",
			Sources:     cli.EnvVars("HIVEMINDDB_ENCRYPT_TYPE"),
			Destination: &cfg.EncryptType,
			Value:       cfg.EncryptType,
			Usage:       "Snapshot encryption provider (" + strings.Join(registryencrypt.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "encryption-key",
			Category:    "Encryption:",
			Sources:     cli.EnvVars("HIVEMINDDB_ENCRYPTION_KEY"),
			Destination: &cfg.EncryptionKey,
			Usage:       "AES key for encrypt-type=dek (hex or base64, 32 bytes)",
		},
		&cli.StringFlag{
			Name:        "vault-addr",
			Category:    "Encryption:",
			Sources:     cli.EnvVars("VAULT_ADDR"),
			Destination: &cfg.VaultAddr,
			Usage:       "Vault server URL for encrypt-type=vault",
		},
		&cli.StringFlag{
			Name:        "vault-transit-key",
			Category:    "Encryption:",
			Sources:     cli.EnvVars("HIVEMINDDB_VAULT_TRANSIT_KEY"),
			Destination: &cfg.VaultTransitKey,
			Usage:       "Vault Transit key name for encrypt-type=vault",
		},
		&cli.StringFlag{
			Name:        "awskms-key-id",
			Category:    "Encryption:",
			Sources:     cli.EnvVars("HIVEMINDDB_AWSKMS_KEY_ID"),
			Destination: &cfg.AWSKMSKeyID,
			Usage:       "AWS KMS key ID or ARN for encrypt-type=kms",
		},

		// ── Backup ────────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "s3-snapshot-bucket",
			Category:    "Backup:",
			Sources:     cli.EnvVars("HIVEMINDDB_S3_SNAPSHOT_BUCKET"),
			Destination: &cfg.S3SnapshotBucket,
			Usage:       "S3 bucket for offsite snapshot backup; empty disables offsite backup",
		},
		&cli.StringFlag{
			Name:        "s3-snapshot-prefix",
			Category:    "Backup:",
			Sources:     cli.EnvVars("HIVEMINDDB_S3_SNAPSHOT_PREFIX"),
			Destination: &cfg.S3SnapshotPrefix,
			Usage:       "Key prefix for uploaded snapshots",
		},

		// ── Channels & search ─────────────────────────────────────
		&cli.IntFlag{
			Name:        "bus-capacity",
			Category:    "Channels:",
			Sources:     cli.EnvVars("HIVEMINDDB_BUS_CAPACITY"),
			Destination: &cfg.BusCapacity,
			Value:       cfg.BusCapacity,
			Usage:       "Per-subscriber event queue capacity",
		},
		&cli.DurationFlag{
			Name:        "ws-write-timeout",
			Category:    "Channels:",
			Sources:     cli.EnvVars("HIVEMINDDB_WS_WRITE_TIMEOUT"),
			Destination: &cfg.WSWriteTimeout,
			Value:       cfg.WSWriteTimeout,
			Usage:       "Max time a WebSocket write may block before the client is evicted",
		},
		&cli.IntFlag{
			Name:        "max-traversal-depth",
			Category:    "Graph:",
			Sources:     cli.EnvVars("HIVEMINDDB_MAX_TRAVERSAL_DEPTH"),
			Destination: &cfg.MaxTraversalDepth,
			Value:       cfg.MaxTraversalDepth,
			Usage:       "Upper bound on graph traversal depth",
		},
		&cli.IntFlag{
			Name:        "default-search-limit",
			Category:    "Search:",
			Sources:     cli.EnvVars("HIVEMINDDB_DEFAULT_SEARCH_LIMIT"),
			Destination: &cfg.DefaultSearchLimit,
			Value:       cfg.DefaultSearchLimit,
			Usage:       "Result limit used when a search request omits one",
		},

		// ── Auth ──────────────────────────────────────────────────
		&cli.StringFlag{
			Name:     "api-keys",
			Category: "Auth:",
			Sources:  cli.EnvVars("HIVEMINDDB_API_KEYS"),
			Usage:    "\"agent=key1,key2;agent2=key3\" mapping API keys to agent ids",
		},
		&cli.StringFlag{
			Name:        "oidc-issuer",
			Category:    "Auth:",
			Sources:     cli.EnvVars("HIVEMINDDB_OIDC_ISSUER"),
			Destination: &cfg.OIDCIssuer,
			Usage:       "OIDC issuer URL (enables bearer-JWT auth)",
		},
		&cli.StringFlag{
			Name:        "oidc-audience",
			Category:    "Auth:",
			Sources:     cli.EnvVars("HIVEMINDDB_OIDC_AUDIENCE"),
			Destination: &cfg.OIDCAudience,
			Usage:       "Expected OIDC audience / client ID",
		},
		&cli.BoolFlag{
			Name:        "enable-access-policy",
			Category:    "Auth:",
			Sources:     cli.EnvVars("HIVEMINDDB_ENABLE_ACCESS_POLICY"),
			Destination: &cfg.EnableAccessPolicy,
			Usage:       "Enforce the OPA-backed memory ownership policy in addition to API-key/JWT auth",
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Category:    "Auth:",
			Sources:     cli.EnvVars("HIVEMINDDB_POLICY_DIR"),
			Destination: &cfg.PolicyDir,
			Usage:       "Directory containing authz.rego; empty uses the built-in default policy",
		},
	}
}

// parseAPIKeys parses "agent=key1,key2;agent2=key3" into a key->agent map.
func parseAPIKeys(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		agentID := strings.TrimSpace(parts[0])
		for _, key := range strings.Split(parts[1], ",") {
			key = strings.TrimSpace(key)
			if key != "" {
				out[key] = agentID
			}
		}
	}
	return out
}

func run(ctx context.Context, cfg config.Config) error {
	srv, err := StartServer(ctx, &cfg)
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down")

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
	defer drainCancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error("shutdown error", "err", err)
	}
	log.Info("server stopped")
	return nil
}

// maxBodySizeMiddleware caps request body size uniformly across the API
// surface; HiveMindDB has no streaming upload endpoint requiring a carve-out.
func maxBodySizeMiddleware(maxBodySize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
		c.Next()
	}
}
