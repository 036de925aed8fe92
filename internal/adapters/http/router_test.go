package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/rxverify/internal/config"
	"github.com/kirillkom/rxverify/internal/core/domain"
)

type crossCheckFake struct {
	err          error
	lastQuestion string
	lastLimit    int
}

func (f *crossCheckFake) Answer(_ context.Context, question string, limit int) (*domain.CrossCheckAnswer, error) {
	f.lastQuestion = question
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CrossCheckAnswer{Answer: "take with food"}, nil
}

type searchFake struct {
	results   []domain.DrugSearchResult
	err       error
	lastQuery string
	lastLimit int
}

func (f *searchFake) Search(_ context.Context, query string, limit int) ([]domain.DrugSearchResult, error) {
	f.lastQuery = query
	f.lastLimit = limit
	return f.results, f.err
}

func (f *searchFake) Suggest(_ context.Context, partial string, _ int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{partial + "ol"}, nil
}

type ratingsFake struct {
	err       error
	lastDrug  string
	lastVoter string
	lastVote  domain.VoteType
}

func (f *ratingsFake) Vote(_ context.Context, drugID, voterID string, vote domain.VoteType) (*domain.Rating, error) {
	f.lastDrug, f.lastVoter, f.lastVote = drugID, voterID, vote
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Rating{DrugID: drugID, Upvotes: 1, TotalVotes: 1, Score: 1}, nil
}

func (f *ratingsFake) Unvote(_ context.Context, drugID, voterID string, vote domain.VoteType) (*domain.Rating, error) {
	f.lastDrug, f.lastVoter, f.lastVote = drugID, voterID, vote
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Rating{DrugID: drugID}, nil
}

func (f *ratingsFake) Rating(_ context.Context, drugID string) (*domain.Rating, error) {
	f.lastDrug = drugID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Rating{DrugID: drugID}, nil
}

type importsFake struct {
	err error
}

func (f *importsFake) Request(_ context.Context, name string) (*domain.ImportRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ImportRequest{ID: "req-1", DrugName: name, Status: domain.ImportStatusPending}, nil
}

func (f *importsFake) Status(_ context.Context, id string) (*domain.ImportRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ImportRequest{ID: id, Status: domain.ImportStatusReady, DrugID: "rxcui-1191"}, nil
}

type routerDeps struct {
	crossCheck *crossCheckFake
	search     *searchFake
	ratings    *ratingsFake
	imports    *importsFake
}

func newTestRouter(cfg config.Config) (http.Handler, *routerDeps) {
	deps := &routerDeps{
		crossCheck: &crossCheckFake{},
		search:     &searchFake{},
		ratings:    &ratingsFake{},
		imports:    &importsFake{},
	}
	router := NewRouter(cfg, deps.crossCheck, deps.search, deps.ratings, deps.imports)
	return router.Handler(), deps
}

func serve(handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "rxverify-test")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestHealthzSetsRequestID(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})
	res := serve(handler, http.MethodGet, "/healthz", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id header")
	}
}

func TestQueryPassesQuestionAndLimit(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	res := serve(handler, http.MethodPost, "/v1/query", map[string]any{"question": "ibuprofen dosage?", "limit": 8})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if deps.crossCheck.lastQuestion != "ibuprofen dosage?" || deps.crossCheck.lastLimit != 8 {
		t.Fatalf("unexpected forwarded query: %q %d", deps.crossCheck.lastQuestion, deps.crossCheck.lastLimit)
	}
}

func TestQueryRejectsBlankQuestion(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})
	res := serve(handler, http.MethodPost, "/v1/query", map[string]any{"question": "   "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQueryMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid", err: domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("bad")), want: http.StatusBadRequest},
		{name: "temporary", err: domain.WrapError(domain.ErrTemporary, "generate", errors.New("ollama down")), want: http.StatusServiceUnavailable},
		{name: "unexpected", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler, deps := newTestRouter(config.Config{})
			deps.crossCheck.err = tc.err
			res := serve(handler, http.MethodPost, "/v1/query", map[string]any{"question": "aspirin"})
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
}

func TestInternalErrorsDoNotLeakDetails(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	deps.search.err = errors.New("pq: relation drugs does not exist")

	res := serve(handler, http.MethodGet, "/v1/search?q=aspirin", nil)
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "internal error" {
		t.Fatalf("expected generic message, got %q", body["error"])
	}
}

func TestSearchReturnsResults(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	deps.search.results = []domain.DrugSearchResult{{ID: "d1", DisplayName: "Ibuprofen"}}

	res := serve(handler, http.MethodGet, "/v1/search?q=ibu&limit=5", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if deps.search.lastQuery != "ibu" || deps.search.lastLimit != 5 {
		t.Fatalf("unexpected forwarded search: %q %d", deps.search.lastQuery, deps.search.lastLimit)
	}
	var body struct {
		Count   int                       `json:"count"`
		Results []domain.DrugSearchResult `json:"results"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || body.Results[0].ID != "d1" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestSearchEmptyResultsEncodeAsArray(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})
	res := serve(handler, http.MethodGet, "/v1/search?q=x", nil)
	if !bytes.Contains(res.Body.Bytes(), []byte(`"results":[]`)) {
		t.Fatalf("expected empty array, got %s", res.Body.String())
	}
}

func TestSearchRejectsBadLimit(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})
	res := serve(handler, http.MethodGet, "/v1/search?q=ibu&limit=many", nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestSuggest(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})
	res := serve(handler, http.MethodGet, "/v1/suggest?q=parace", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !bytes.Contains(res.Body.Bytes(), []byte(`"paraceol"`)) {
		t.Fatalf("unexpected suggestions: %s", res.Body.String())
	}
}

func TestVoteUsesDerivedVoterID(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	res := serve(handler, http.MethodPost, "/v1/drugs/drug-7/vote", map[string]string{"vote": "UP"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if deps.ratings.lastDrug != "drug-7" || deps.ratings.lastVote != domain.VoteUp {
		t.Fatalf("unexpected vote forwarded: %+v", deps.ratings)
	}
	if len(deps.ratings.lastVoter) != 16 {
		t.Fatalf("expected 16 char voter id, got %q", deps.ratings.lastVoter)
	}
}

func TestVoteRejectsUnknownVoteType(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})
	res := serve(handler, http.MethodPost, "/v1/drugs/drug-7/vote", map[string]string{"vote": "meh"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestVoteConflictOnRepeat(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	deps.ratings.err = domain.WrapError(domain.ErrAlreadyVoted, "vote", errors.New("drug-7"))
	res := serve(handler, http.MethodPost, "/v1/drugs/drug-7/vote", map[string]string{"vote": "down"})
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestUnvoteReadsQueryParameter(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	res := serve(handler, http.MethodDelete, "/v1/drugs/drug-7/vote?vote=down", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if deps.ratings.lastVote != domain.VoteDown {
		t.Fatalf("expected down vote removal, got %q", deps.ratings.lastVote)
	}

	deps.ratings.err = domain.WrapError(domain.ErrVoteNotFound, "unvote", errors.New("drug-7"))
	res = serve(handler, http.MethodDelete, "/v1/drugs/drug-7/vote?vote=down", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestRatingNotFound(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	deps.ratings.err = domain.WrapError(domain.ErrDrugNotFound, "rating", errors.New("missing"))
	res := serve(handler, http.MethodGet, "/v1/drugs/missing/rating", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestImportRequestAccepted(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})
	res := serve(handler, http.MethodPost, "/v1/imports", map[string]string{"name": "semaglutide"})
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	var body domain.ImportRequest
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.DrugName != "semaglutide" || body.Status != domain.ImportStatusPending {
		t.Fatalf("unexpected import request: %+v", body)
	}
}

func TestImportStatus(t *testing.T) {
	handler, deps := newTestRouter(config.Config{})
	res := serve(handler, http.MethodGet, "/v1/imports/req-9", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	deps.imports.err = domain.WrapError(domain.ErrDrugNotFound, "import_status", errors.New("req-9"))
	res = serve(handler, http.MethodGet, "/v1/imports/req-9", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler, _ := newTestRouter(config.Config{})
	res := serve(handler, http.MethodGet, "/v1/query", nil)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestVoterIDStable(t *testing.T) {
	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.RemoteAddr = "10.0.0.1:5555"
	first.Header.Set("User-Agent", "curl/8")

	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.RemoteAddr = "10.0.0.1:6666"
	second.Header.Set("User-Agent", "curl/8")

	if voterID(first) != voterID(second) {
		t.Fatalf("expected port to be ignored")
	}

	forwarded := httptest.NewRequest(http.MethodGet, "/", nil)
	forwarded.RemoteAddr = "10.0.0.1:5555"
	forwarded.Header.Set("User-Agent", "curl/8")
	forwarded.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if voterID(forwarded) == voterID(first) {
		t.Fatalf("expected forwarded client to produce a different voter")
	}
	if clientIP(forwarded) != "203.0.113.9" {
		t.Fatalf("unexpected client ip %q", clientIP(forwarded))
	}
}
