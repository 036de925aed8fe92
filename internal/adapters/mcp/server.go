package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/core/ports"
)

const (
	serverName         = "rxverify"
	defaultSearchLimit = 10
	defaultCrossCheckK = 6
)

type Tools struct {
	search     ports.DrugSearchService
	crossCheck ports.CrossCheckService
	logger     *slog.Logger
}

func NewTools(search ports.DrugSearchService, crossCheck ports.CrossCheckService, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{search: search, crossCheck: crossCheck, logger: logger}
}

// NewServer registers the drug tools on a stdio capable MCP server.
func NewServer(tools *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer(serverName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool("search_drugs",
		mcp.WithDescription("Search the drug catalogue by generic name, brand name or combination."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Drug name or partial name")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results"), mcp.Min(1), mcp.Max(50)),
	), tools.SearchDrugs)

	s.AddTool(mcp.NewTool("crosscheck",
		mcp.WithDescription("Answer a medication question from several sources and report where they disagree."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Natural language medication question")),
		mcp.WithNumber("limit", mcp.Description("Number of source documents to consider"), mcp.Min(1), mcp.Max(30)),
	), tools.CrossCheck)

	return s
}

func (t *Tools) SearchDrugs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", defaultSearchLimit)

	results, err := t.search.Search(ctx, query, limit)
	if err != nil {
		return t.toolError("search_drugs", err), nil
	}
	if results == nil {
		results = []domain.DrugSearchResult{}
	}
	return jsonResult(map[string]any{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

func (t *Tools) CrossCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", defaultCrossCheckK)

	answer, err := t.crossCheck.Answer(ctx, question, limit)
	if err != nil {
		return t.toolError("crosscheck", err), nil
	}
	return jsonResult(answer)
}

// toolError reports domain failures to the client as tool errors. Only
// unexpected failures are logged.
func (t *Tools) toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return mcp.NewToolResultError("invalid input: " + err.Error())
	case errors.Is(err, domain.ErrTemporary):
		return mcp.NewToolResultError("upstream temporarily unavailable, retry later")
	default:
		t.logger.Error("mcp_tool_failed", "tool", tool, "error", err)
		return mcp.NewToolResultError("internal error")
	}
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}
