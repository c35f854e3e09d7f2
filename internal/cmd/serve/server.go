package serve

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/nodenestor/hiveminddb/internal/bus"
	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/config"
	"github.com/nodenestor/hiveminddb/internal/embedindex"
	"github.com/nodenestor/hiveminddb/internal/engine"
	"github.com/nodenestor/hiveminddb/internal/idalloc"
	"github.com/nodenestor/hiveminddb/internal/plugin/attach/s3store"
	"github.com/nodenestor/hiveminddb/internal/policy"
	"github.com/nodenestor/hiveminddb/internal/plugin/route/agents"
	"github.com/nodenestor/hiveminddb/internal/plugin/route/channels"
	"github.com/nodenestor/hiveminddb/internal/plugin/route/extract"
	"github.com/nodenestor/hiveminddb/internal/plugin/route/graph"
	"github.com/nodenestor/hiveminddb/internal/plugin/route/memories"
	routesearch "github.com/nodenestor/hiveminddb/internal/plugin/route/search"
	routesystem "github.com/nodenestor/hiveminddb/internal/plugin/route/system"
	"github.com/nodenestor/hiveminddb/internal/plugin/route/tasks"
	registrycache "github.com/nodenestor/hiveminddb/internal/registry/cache"
	registryembed "github.com/nodenestor/hiveminddb/internal/registry/embed"
	registryencrypt "github.com/nodenestor/hiveminddb/internal/registry/encrypt"
	registrymigrate "github.com/nodenestor/hiveminddb/internal/registry/migrate"
	registryreplication "github.com/nodenestor/hiveminddb/internal/registry/replication"
	registryroute "github.com/nodenestor/hiveminddb/internal/registry/route"
	registrystore "github.com/nodenestor/hiveminddb/internal/registry/store"
	registryvector "github.com/nodenestor/hiveminddb/internal/registry/vector"
	"github.com/nodenestor/hiveminddb/internal/search"
	"github.com/nodenestor/hiveminddb/internal/security"
	"github.com/nodenestor/hiveminddb/internal/snapshot"
	"github.com/nodenestor/hiveminddb/internal/store"
	"github.com/nodenestor/hiveminddb/internal/wsfanout"

	// Import all plugins to trigger init() registration.
	_ "github.com/nodenestor/hiveminddb/internal/plugin/cache/noop"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/cache/redis"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/cache/ristretto"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/embed/disabled"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/embed/local"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/embed/openai"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/encrypt/awskms"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/encrypt/dek"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/encrypt/plain"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/encrypt/vault"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/replication/grpc"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/replication/nats"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/replication/noop"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/route/system"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/vector/pgvector"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/vector/qdrant"

	_ "github.com/nodenestor/hiveminddb/internal/plugin/store/mongo"
	_ "github.com/nodenestor/hiveminddb/internal/plugin/store/postgres"
)

var allKinds = []idalloc.Kind{
	idalloc.KindMemory,
	idalloc.KindHistory,
	idalloc.KindEntity,
	idalloc.KindRelationship,
	idalloc.KindChannel,
	idalloc.KindMembership,
	idalloc.KindTask,
}

// Server holds every running subsystem so Shutdown can stop them in the
// right order (spec.md §4.11): HTTP listener first, then a final
// snapshot save.
type Server struct {
	Config   *config.Config
	Router   *gin.Engine
	Engine   *engine.Engine
	Snapshot *snapshot.Engine
	// Addr is the HTTP listener's actual bound address, useful when
	// cfg.ListenAddr asked for an ephemeral port (":0").
	Addr     string
	httpDone func(context.Context) error
}

// Shutdown stops accepting new HTTP connections, waits for in-flight
// requests until ctx is done, and takes one last snapshot so a restart
// loses nothing committed before the drain deadline. It does not stop the
// background snapshot ticker or close bus receivers.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpDone != nil {
		err = s.httpDone(ctx)
	}
	if saveErr := s.Snapshot.Save(ctx); saveErr != nil {
		log.Error("final snapshot save failed", "err", saveErr)
		if err == nil {
			err = saveErr
		}
	}
	return err
}

// StartServer wires the Store, Engine, search Engine, snapshot Engine,
// optional Embedder/ReplicationSink capabilities, the HTTP route surface,
// and the WebSocket fan-out handler, then starts listening (spec.md §6).
// No Extractor is configured here.
func StartServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log.Info("starting hiveminddb",
		"listenAddr", cfg.ListenAddr,
		"embedding", cfg.EmbeddingModel,
		"replication", cfg.ReplicationType,
	)

	security.InitMetrics()

	st := store.New()
	ids := idalloc.New(allKinds...)
	embeds := embedindex.New()
	b := bus.New(cfg.BusCapacity)

	encProvider, err := loadEncryptionProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var snapOpts []snapshot.Option
	if encProvider != nil {
		snapOpts = append(snapOpts, snapshot.WithEncryption(encProvider))
	}
	if cfg.S3SnapshotBucket != "" {
		if backup, err := s3store.New(ctx, cfg); err != nil {
			log.Warn("offsite snapshot backup not available", "err", err)
		} else {
			snapOpts = append(snapOpts, snapshot.WithBackup(backup))
		}
	}
	needsMigration := (cfg.StoreType != "" && cfg.StoreType != "memory") || cfg.VectorType != ""
	if needsMigration {
		if err := registrymigrate.RunAll(ctx); err != nil {
			return nil, fmt.Errorf("backend migration failed: %w", err)
		}
	}
	if cfg.StoreType != "" && cfg.StoreType != "memory" {
		backend, err := loadStoreBackend(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("loading store backend %q: %w", cfg.StoreType, err)
		}
		snapOpts = append(snapOpts, snapshot.WithStoreBackend(backend))
	}
	snap := snapshot.New(st, ids, cfg.DataDir, cfg.SnapshotInterval, snapOpts...)
	if _, err := snap.Restore(ctx); err != nil {
		return nil, fmt.Errorf("snapshot restore failed: %w", err)
	}

	var opts []engine.Option
	if embedder, err := loadEmbedder(ctx, cfg); err != nil {
		log.Warn("embedder not available; falling back to keyword-only search", "err", err)
	} else if embedder != nil {
		opts = append(opts, engine.WithEmbedder(embedder))
	}
	if repl, err := loadReplication(ctx, cfg); err != nil {
		log.Warn("replication not available", "err", err)
	} else if repl != nil {
		opts = append(opts, engine.WithReplication(repl))
	}
	if cfg.MaxTraversalDepth > 0 {
		opts = append(opts, engine.WithMaxTraversalDepth(cfg.MaxTraversalDepth))
	}
	if cfg.EnableAccessPolicy {
		accessPolicy, err := policy.New(ctx, cfg.PolicyDir)
		if err != nil {
			return nil, fmt.Errorf("loading access policy: %w", err)
		}
		opts = append(opts, engine.WithAccessPolicy(accessPolicy))
	}
	if cfg.VectorType != "" {
		vecIndex, err := loadVectorIndex(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("loading vector index %q: %w", cfg.VectorType, err)
		}
		opts = append(opts, engine.WithVectorIndex(vecIndex))
	}

	eng := engine.New(st, ids, embeds, b, opts...)
	eng.ReindexEmbeddings(ctx)
	searchEng := search.New(eng, cfg.SearchKeywordWeight, cfg.SearchVectorWeight, cfg.DefaultSearchLimit)
	if searchCache, err := loadCache(ctx, cfg); err != nil {
		log.Warn("search cache not available; falling back to uncached search", "err", err)
	} else if searchCache != nil {
		searchEng.WithCache(searchCache)
	}

	go snap.Run(ctx)

	router := newRouter(cfg, eng, searchEng, b)

	for _, loader := range registryroute.MainRouteLoaders() {
		if err := loader(router); err != nil {
			return nil, fmt.Errorf("failed to load main routes: %w", err)
		}
	}
	for _, loader := range registryroute.ManagementRouteLoaders() {
		if err := loader(router); err != nil {
			return nil, fmt.Errorf("failed to load management routes: %w", err)
		}
	}

	addr, httpDone, err := startHTTPServer(cfg.ListenAddr, router)
	if err != nil {
		return nil, err
	}

	routesystem.MarkReady()
	log.Info("hiveminddb listening", "addr", addr)

	return &Server{
		Config:   cfg,
		Router:   router,
		Engine:   eng,
		Snapshot: snap,
		Addr:     addr,
		httpDone: httpDone,
	}, nil
}

func newRouter(cfg *config.Config, eng *engine.Engine, searchEng *search.Engine, b *bus.Bus) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(security.AccessLogMiddleware("/health", "/ready", "/metrics"))
	router.Use(security.MetricsMiddleware())
	router.Use(maxBodySizeMiddleware(cfg.MaxBodySize()))
	if cfg.CORSOrigins != "" {
		router.Use(corsMiddleware(cfg.CORSOrigins))
	}

	resolver := security.NewResolver(cfg)
	auth := security.Middleware(resolver)

	g := router.Group("/api/v1", auth)
	memories.MountRoutes(g, eng)
	routesearch.MountRoutes(g, searchEng)
	extract.MountRoutes(g, eng)
	graph.MountRoutes(g, eng)
	channels.MountRoutes(g, eng)
	agents.MountRoutes(g, eng)
	tasks.MountRoutes(g, eng)
	routesystem.MountRoutes(router, eng, auth)

	ws := wsfanout.New(b, cfg.WSWriteTimeout)
	router.GET("/ws", func(c *gin.Context) { ws.Serve(c.Writer, c.Request) })

	return router
}

func loadEmbedder(ctx context.Context, cfg *config.Config) (capability.Embedder, error) {
	if cfg.EmbeddingModel == "" {
		return nil, nil
	}
	name := providerName(cfg.EmbeddingModel)
	loader, err := registryembed.Select(name)
	if err != nil {
		return nil, err
	}
	return loader(config.WithContext(ctx, cfg))
}

func loadReplication(ctx context.Context, cfg *config.Config) (capability.ReplicationSink, error) {
	name := cfg.ReplicationType
	if name == "" {
		name = "noop"
	}
	if !cfg.EnableReplication {
		return nil, nil
	}
	loader, err := registryreplication.Select(name)
	if err != nil {
		return nil, err
	}
	return loader(ctx, cfg)
}

func loadVectorIndex(ctx context.Context, cfg *config.Config) (capability.VectorIndex, error) {
	loader, err := registryvector.Select(cfg.VectorType)
	if err != nil {
		return nil, err
	}
	return loader(config.WithContext(ctx, cfg))
}

func loadStoreBackend(ctx context.Context, cfg *config.Config) (capability.StoreBackend, error) {
	loader, err := registrystore.Select(cfg.StoreType)
	if err != nil {
		return nil, err
	}
	return loader(config.WithContext(ctx, cfg))
}

func loadCache(ctx context.Context, cfg *config.Config) (capability.Cache, error) {
	name := cfg.CacheType
	if name == "" {
		name = "noop"
	}
	loader, err := registrycache.Select(name)
	if err != nil {
		return nil, err
	}
	return loader(config.WithContext(ctx, cfg))
}

func loadEncryptionProvider(ctx context.Context, cfg *config.Config) (registryencrypt.Provider, error) {
	name := cfg.EncryptType
	if name == "" {
		name = "plain"
	}
	loader, err := registryencrypt.Select(name)
	if err != nil {
		return nil, err
	}
	return loader(ctx, cfg)
}

// providerName extracts the provider half of a "provider:model" string.
func providerName(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i]
		}
	}
	return s
}

// startHTTPServer binds addr and serves router in the background, returning
// the actual bound address (addr may ask for an ephemeral ":0" port) and a
// func that gracefully shuts the listener down.
func startHTTPServer(addr string, router *gin.Engine) (string, func(context.Context) error, error) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("http server stopped unexpectedly", "err", err)
		}
	}()
	return ln.Addr().String(), srv.Shutdown, nil
}
