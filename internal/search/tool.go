package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultResultCount bounds how many snippets a web_search call feeds
// back to the model.
const DefaultResultCount = 3

// NoResults is the sentinel returned when the provider answered
// normally but had nothing usable. It is a valid tool result, not an
// error: "searched, found nothing" must stay distinct from "could not
// search".
const NoResults = "No results found"

// ToolHandler returns a function compatible with the tools.Tool Handler
// signature. It wraps the Manager's search method for use as an agent tool.
func ToolHandler(mgr *Manager, maxResults int, logger *slog.Logger) func(ctx context.Context, args map[string]any) (string, error) {
	if maxResults <= 0 {
		maxResults = DefaultResultCount
	}

	return func(ctx context.Context, args map[string]any) (string, error) {
		query, _ := args["query"].(string)
		if strings.TrimSpace(query) == "" {
			return "", fmt.Errorf("web_search: query is required")
		}

		opts := Options{Count: maxResults}
		if count, ok := args["count"].(float64); ok && count > 0 && int(count) < maxResults {
			opts.Count = int(count)
		}

		results, err := mgr.Search(ctx, query, opts)
		if err != nil {
			return "", fmt.Errorf("web_search: %w", err)
		}

		lines := FormatSnippets(results)
		if len(lines) > opts.Count {
			lines = lines[:opts.Count]
		}
		logger.Debug("web search completed", "query", query, "results", len(lines))

		if len(lines) == 0 {
			return NoResults, nil
		}
		return strings.Join(lines, "\n"), nil
	}
}

// ToolDefinition returns the JSON Schema parameters for the web_search tool.
func ToolDefinition() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query string.",
			},
			"count": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results to return (1-3). Default: 3.",
			},
		},
		"required": []string{"query"},
	}
}
