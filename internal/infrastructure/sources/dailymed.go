package sources

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/infrastructure/extractor/labels"
	"github.com/kirillkom/rxverify/internal/infrastructure/resilience"
)

const DefaultDailyMedURL = "https://dailymed.nlm.nih.gov/dailymed/services/v2"

// identitiesPerName bounds how many RxCUIs are looked up at DailyMed.
const identitiesPerName = 3

// IdentityResolver maps a drug name onto nomenclature identities.
type IdentityResolver interface {
	ResolveIdentities(ctx context.Context, name string, limit int) ([]string, error)
}

// DailyMedFetcher looks labels up by RxCUI first, then by generic name, and
// reads the coded sections of each SPL document.
type DailyMedFetcher struct {
	api      *restClient
	resolver IdentityResolver
	logger   *slog.Logger
}

// NewDailyMed builds the fetcher. resolver may be nil, in which case labels
// are only searched by name and carry no identity.
func NewDailyMed(baseURL string, resolver IdentityResolver, executor *resilience.Executor, logger *slog.Logger) *DailyMedFetcher {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultDailyMedURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyMedFetcher{
		api:      newRESTClient("dailymed", baseURL, executor),
		resolver: resolver,
		logger:   logger,
	}
}

func (f *DailyMedFetcher) Source() domain.Source { return domain.SourceDailyMed }

type splSummary struct {
	SetID string `json:"setid"`
	Title string `json:"title"`
}

func (f *DailyMedFetcher) Fetch(ctx context.Context, query string, limit int) ([]domain.RawHit, error) {
	name := DrugNameFromQuestion(query)
	if name == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	var hits []domain.RawHit
	seen := make(map[string]struct{})
	add := func(identity string, spl splSummary) {
		if spl.SetID == "" || len(hits) >= limit {
			return
		}
		if _, dup := seen[spl.SetID]; dup {
			return
		}
		seen[spl.SetID] = struct{}{}
		hits = append(hits, f.hit(ctx, name, identity, spl))
	}

	if f.resolver != nil {
		identities, err := f.resolver.ResolveIdentities(ctx, name, identitiesPerName)
		if err != nil {
			f.logger.Warn("dailymed_identity_lookup_failed", "drug", name, "error", err)
		}
		for _, rxcui := range identities {
			spls, err := f.list(ctx, url.Values{"rxcui": {rxcui}}, limit)
			if err != nil {
				f.logger.Warn("dailymed_rxcui_search_failed", "rxcui", rxcui, "error", err)
				continue
			}
			for _, spl := range spls {
				add(rxcui, spl)
			}
		}
	}

	if len(hits) < limit {
		spls, err := f.list(ctx, url.Values{"drug_name": {name}, "name_type": {"generic"}}, limit-len(hits))
		if err != nil {
			if len(hits) == 0 {
				return nil, err
			}
			f.logger.Warn("dailymed_name_search_failed", "drug", name, "error", err)
		}
		for _, spl := range spls {
			add("", spl)
		}
	}
	return hits, nil
}

func (f *DailyMedFetcher) list(ctx context.Context, params url.Values, pageSize int) ([]splSummary, error) {
	params.Set("pagesize", strconv.Itoa(pageSize))
	var payload struct {
		Data []splSummary `json:"data"`
	}
	if err := f.api.getJSON(ctx, "/spls.json", params, &payload, "list"); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return payload.Data, nil
}

// hit reads the SPL document. A missing or unparseable document degrades to
// a pointer at the label page instead of dropping the hit.
func (f *DailyMedFetcher) hit(ctx context.Context, name, identity string, spl splSummary) domain.RawHit {
	hit := domain.RawHit{
		Identity:   identity,
		Source:     string(domain.SourceDailyMed),
		ExternalID: spl.SetID,
		URL:        "https://dailymed.nlm.nih.gov/dailymed/drugInfo.cfm?setid=" + url.QueryEscape(spl.SetID),
		Title:      spl.Title,
		Score:      baseScore,
	}

	raw, err := f.api.get(ctx, "/spls/"+url.PathEscape(spl.SetID)+".xml", nil, "document")
	if err == nil {
		var parsed labels.SPL
		parsed, err = labels.ParseSPL(bytes.NewReader(raw))
		if err == nil {
			hit.Text = parsed.Text(name)
			if hit.Title == "" {
				hit.Title = parsed.Title
			}
		}
	}
	if err != nil {
		f.logger.Warn("dailymed_document_failed", "setid", spl.SetID, "error", err)
	}
	if hit.Text == "" {
		hit.Text = fmt.Sprintf("DailyMed SPL: %s\nPackage insert content available at the label page.", spl.Title)
	}
	return hit
}
