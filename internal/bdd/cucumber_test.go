package bdd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/require"

	"github.com/nodenestor/hiveminddb/internal/cmd/serve"
	"github.com/nodenestor/hiveminddb/internal/config"
	"github.com/nodenestor/hiveminddb/internal/testutil/cucumber"
)

// TestFeatures runs every *.feature file under internal/bdd/features
// against a real HTTP server. The engine's store lives in memory
// (cfg.StoreType "memory", the default) — durable-backend persistence is
// not exercised here (internal/plugin/store/postgres has only row-conversion
// unit tests, and internal/plugin/store/mongo has none), since HTTP-visible behavior never depends on which backend a
// snapshot replays from (spec.md §11).
func TestFeatures(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.DataDir = t.TempDir()
	cfg.EmbeddingModel = "local:hashbag"
	cfg.APIKeys = map[string]string{
		"key-agent-a": "agent-a",
		"key-agent-b": "agent-b",
		"key-agent-c": "agent-c",
	}

	ctx := config.WithContext(context.Background(), &cfg)
	srv, err := serve.StartServer(ctx, &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	suite := cucumber.NewTestSuite()
	suite.APIURL = fmt.Sprintf("http://%s", srv.Addr)
	suite.TestingT = t

	featuresDir := "features"
	if _, err := os.Stat(featuresDir); os.IsNotExist(err) {
		t.Skipf("feature files directory not found: %s", featuresDir)
	}
	featureFiles, err := filepath.Glob(filepath.Join(featuresDir, "*.feature"))
	require.NoError(t, err)
	require.NotEmpty(t, featureFiles, "no feature files found in %s", featuresDir)

	opts := cucumber.DefaultOptions()
	opts.Paths = featureFiles
	// Scenarios share one in-memory engine and no per-scenario reset, so
	// list/count assertions only hold if scenarios don't interleave.
	opts.Concurrency = 1
	cleanup := cucumber.ApplyReportOptions(&opts, t.Name())
	defer cleanup()

	testSuite := godog.TestSuite{
		Name:                "hiveminddb",
		ScenarioInitializer: suite.InitializeScenario,
		Options:             &opts,
	}

	if status := testSuite.Run(); status != 0 {
		t.Fatalf("godog feature tests failed with status %d", status)
	}
}
