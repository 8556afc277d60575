// Package mcptool implements the agent-facing knowledge-base search tool
// exposed over the Model Context Protocol.
package mcptool

import (
	"context"
	"fmt"
	"strings"

	"ragcore/internal/model"
	"ragcore/internal/retrieve"
)

// DefaultMatchCount is used when the caller omits match_count.
const DefaultMatchCount = 5

// SearchInput is the JSON-schema-described input to search_knowledge_base.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"the search query"`
	MatchCount int    `json:"match_count,omitempty" jsonschema:"maximum number of matches to return, default 5"`
	SearchType string `json:"search_type,omitempty" jsonschema:"semantic or hybrid, default semantic"`
}

// KnowledgeBase renders hybrid/semantic retrieval results as the
// human-readable string the search_knowledge_base tool returns.
type KnowledgeBase struct {
	Retrieval *retrieve.Engine
	Tenant    string
}

// Search never returns an error: failures are folded into the returned
// string per the tool's "never raises to the caller" contract.
func (kb *KnowledgeBase) Search(ctx context.Context, in SearchInput) string {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return "Error searching knowledge base: query is required"
	}

	matchCount := in.MatchCount
	if matchCount <= 0 {
		matchCount = DefaultMatchCount
	}

	mode := model.ModeSemantic
	if strings.EqualFold(in.SearchType, "hybrid") {
		mode = model.ModeHybrid
	}

	results, _, err := kb.Retrieval.Query(ctx, query, matchCount, model.Filter{Tenant: kb.Tenant}, mode)
	if err != nil {
		return "Error searching knowledge base: " + err.Error()
	}

	return render(results)
}

func render(results []model.HydratedChunk) string {
	if len(results) == 0 {
		return "No relevant information found in the knowledge base."
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Document %d: %s (relevance: %.4f) ---\n", i+1, r.DocumentTitle, r.Score)
		b.WriteString(r.Chunk.Content)
	}
	return b.String()
}
