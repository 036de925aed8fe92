package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/rxverify/internal/core/domain"
)

type searchFake struct {
	lastLimit int
	err       error
}

func (f *searchFake) Search(_ context.Context, query string, limit int) ([]domain.DrugSearchResult, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []domain.DrugSearchResult{{ID: "d1", DisplayName: strings.ToUpper(query)}}, nil
}

func (f *searchFake) Suggest(context.Context, string, int) ([]string, error) { return nil, nil }

type crossCheckFake struct {
	err error
}

func (f crossCheckFake) Answer(_ context.Context, question string, _ int) (*domain.CrossCheckAnswer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CrossCheckAnswer{
		Answer: "answer for " + question,
		Disagreements: []domain.Disagreement{{
			Field: domain.FieldDosage,
		}},
	}, nil
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("expected tool content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestSearchDrugsReturnsJSON(t *testing.T) {
	search := &searchFake{}
	tools := NewTools(search, crossCheckFake{}, nil)

	res, err := tools.SearchDrugs(context.Background(), callRequest("search_drugs", map[string]any{
		"query": "ibuprofen",
		"limit": float64(3),
	}))
	if err != nil {
		t.Fatalf("SearchDrugs() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if search.lastLimit != 3 {
		t.Fatalf("expected limit 3, got %d", search.lastLimit)
	}

	var body struct {
		Count   int                       `json:"count"`
		Results []domain.DrugSearchResult `json:"results"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || body.Results[0].DisplayName != "IBUPROFEN" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestSearchDrugsDefaultsLimit(t *testing.T) {
	search := &searchFake{}
	tools := NewTools(search, crossCheckFake{}, nil)

	if _, err := tools.SearchDrugs(context.Background(), callRequest("search_drugs", map[string]any{"query": "ibu"})); err != nil {
		t.Fatalf("SearchDrugs() error = %v", err)
	}
	if search.lastLimit != defaultSearchLimit {
		t.Fatalf("expected default limit, got %d", search.lastLimit)
	}
}

func TestSearchDrugsRequiresQuery(t *testing.T) {
	tools := NewTools(&searchFake{}, crossCheckFake{}, nil)
	res, err := tools.SearchDrugs(context.Background(), callRequest("search_drugs", map[string]any{}))
	if err != nil {
		t.Fatalf("SearchDrugs() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error for missing query")
	}
}

func TestCrossCheckReturnsDisagreements(t *testing.T) {
	tools := NewTools(&searchFake{}, crossCheckFake{}, nil)
	res, err := tools.CrossCheck(context.Background(), callRequest("crosscheck", map[string]any{"question": "aspirin dose"}))
	if err != nil {
		t.Fatalf("CrossCheck() error = %v", err)
	}

	var answer domain.CrossCheckAnswer
	if err := json.Unmarshal([]byte(resultText(t, res)), &answer); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if answer.Answer != "answer for aspirin dose" || len(answer.Disagreements) != 1 {
		t.Fatalf("unexpected answer: %+v", answer)
	}
}

func TestCrossCheckMapsErrors(t *testing.T) {
	tools := NewTools(&searchFake{}, crossCheckFake{
		err: domain.WrapError(domain.ErrTemporary, "generate", errors.New("timeout")),
	}, nil)
	res, err := tools.CrossCheck(context.Background(), callRequest("crosscheck", map[string]any{"question": "aspirin"}))
	if err != nil {
		t.Fatalf("CrossCheck() error = %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "retry later") {
		t.Fatalf("expected temporary tool error, got %+v", res)
	}
}
