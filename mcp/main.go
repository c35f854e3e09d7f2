package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"

	"github.com/nodenestor/hiveminddb-mcp/internal/client"
	"github.com/nodenestor/hiveminddb-mcp/internal/tools"
)

func main() {
	app := &cli.Command{
		Name:  "hiveminddb-mcp",
		Usage: "MCP stdio adapter exposing hiveminddb's memory API as agent tools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the hiveminddb server",
				Value:   "http://127.0.0.1:8080",
				Sources: cli.EnvVars("HIVEMINDDB_MCP_API_URL"),
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key to send as X-API-Key to the hiveminddb server",
				Sources: cli.EnvVars("HIVEMINDDB_MCP_API_KEY"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(cmd.String("api-url"), cmd.String("api-key"))
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(apiURL, apiKey string) error {
	c := client.New(apiURL, apiKey)

	s := server.NewMCPServer(
		"hiveminddb",
		"0.1.0",
		server.WithToolCapabilities(true),
	)
	tools.Register(s, c)

	log.Info("hiveminddb mcp adapter starting", "api_url", apiURL)
	return server.ServeStdio(s)
}
