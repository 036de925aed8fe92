package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/infrastructure/resilience"
)

const DefaultRxNormURL = "https://rxnav.nlm.nih.gov/REST"

// RxNormFetcher queries the RxNav drugs endpoint. Its RxCUIs are the drug
// identities every other source is grouped under.
type RxNormFetcher struct {
	api *restClient
}

func NewRxNorm(baseURL string, executor *resilience.Executor) *RxNormFetcher {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultRxNormURL
	}
	return &RxNormFetcher{api: newRESTClient("rxnorm", baseURL, executor)}
}

func (f *RxNormFetcher) Source() domain.Source { return domain.SourceRxNorm }

type rxConcept struct {
	RxCUI   string `json:"rxcui"`
	Name    string `json:"name"`
	Synonym string `json:"synonym"`
	TTY     string `json:"tty"`
}

func (f *RxNormFetcher) Fetch(ctx context.Context, query string, limit int) ([]domain.RawHit, error) {
	name := DrugNameFromQuestion(query)
	if name == "" {
		return nil, nil
	}
	concepts, err := f.concepts(ctx, name)
	if err != nil {
		return nil, err
	}

	hits := make([]domain.RawHit, 0, len(concepts))
	for _, concept := range concepts {
		if limit > 0 && len(hits) >= limit {
			break
		}
		hits = append(hits, domain.RawHit{
			Identity:   concept.RxCUI,
			Source:     string(domain.SourceRxNorm),
			ExternalID: concept.RxCUI,
			URL:        rxcuiURL(concept.RxCUI),
			Title:      concept.Name,
			Text:       fmt.Sprintf("RxNorm Drug: %s (RxCUI: %s, Type: %s)", concept.Name, concept.RxCUI, concept.TTY),
			Score:      baseScore,
		})
	}
	return hits, nil
}

// ResolveIdentities returns up to limit RxCUIs for a drug name, in RxNav order.
func (f *RxNormFetcher) ResolveIdentities(ctx context.Context, name string, limit int) ([]string, error) {
	concepts, err := f.concepts(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, limit)
	for _, concept := range concepts {
		if len(out) >= limit {
			break
		}
		out = append(out, concept.RxCUI)
	}
	return out, nil
}

func (f *RxNormFetcher) concepts(ctx context.Context, name string) ([]rxConcept, error) {
	var payload struct {
		DrugGroup struct {
			ConceptGroup []struct {
				TTY               string      `json:"tty"`
				ConceptProperties []rxConcept `json:"conceptProperties"`
			} `json:"conceptGroup"`
		} `json:"drugGroup"`
	}
	params := url.Values{"name": {name}}
	if err := f.api.getJSON(ctx, "/drugs.json", params, &payload, "search"); err != nil {
		return nil, err
	}

	var out []rxConcept
	for _, group := range payload.DrugGroup.ConceptGroup {
		for _, concept := range group.ConceptProperties {
			if strings.TrimSpace(concept.RxCUI) == "" {
				continue
			}
			if concept.TTY == "" {
				concept.TTY = group.TTY
			}
			out = append(out, concept)
		}
	}
	return out, nil
}

func rxcuiURL(rxcui string) string {
	return DefaultRxNormURL + "/rxcui/" + url.PathEscape(rxcui)
}
