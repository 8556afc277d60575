// Command mcp-server exposes the knowledge base to agent callers over the
// Model Context Protocol, via stdio transport.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"ragcore/internal/config"
	"ragcore/internal/embedder"
	"ragcore/internal/mcptool"
	"ragcore/internal/obs"
	"ragcore/internal/retrieve"
	"ragcore/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	obs.InitLogger(cfg.Obs.LogPath, cfg.Obs.LogLevel, cfg.Obs.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdown, err := obs.InitOTel(ctx, cfg.Obs)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without observability")
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	store, err := storage.New(ctx, cfg.Store, cfg.Vector, cfg.Embedder.Dimension)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build storage adapter")
	}
	defer store.Close()

	emb, err := embedder.New(cfg.Embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build embedder client")
	}

	engine := retrieve.New(store, emb, cfg.Retrieval.RRFConstant, cfg.Retrieval.MaxMatchCount)
	kb := &mcptool.KnowledgeBase{Retrieval: engine}

	server := mcp.NewServer(&mcp.Implementation{Name: "ragcore", Version: cfg.Obs.ServiceVersion}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_knowledge_base",
		Description: "Search the ingested knowledge base and return relevant document excerpts.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input mcptool.SearchInput) (*mcp.CallToolResult, any, error) {
		text := kb.Search(ctx, input)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	})

	log.Info().Msg("starting MCP stdio server")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatal().Err(err).Msg("MCP server error")
	}
	log.Info().Msg("MCP server stopped")
}
