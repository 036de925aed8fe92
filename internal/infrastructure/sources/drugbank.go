package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/infrastructure/extractor/labels"
	"github.com/kirillkom/rxverify/internal/infrastructure/resilience"
)

const DefaultDrugBankURL = "https://api.drugbank.com/v1"

// DrugBankFetcher queries the licensed DrugBank API. Without an API key it
// returns a single pointer hit to the public drug page.
type DrugBankFetcher struct {
	api    *restClient
	apiKey string
}

func NewDrugBank(baseURL, apiKey string, executor *resilience.Executor) *DrugBankFetcher {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultDrugBankURL
	}
	api := newRESTClient("drugbank", baseURL, executor)
	apiKey = strings.TrimSpace(apiKey)
	if apiKey != "" {
		api.header.Set("Authorization", apiKey)
	}
	return &DrugBankFetcher{api: api, apiKey: apiKey}
}

func (f *DrugBankFetcher) Source() domain.Source { return domain.SourceDrugBank }

type drugBankDrug struct {
	DrugBankID        string `json:"drugbank_id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Indication        string `json:"indication"`
	MechanismOfAction string `json:"mechanism_of_action"`
	Toxicity          string `json:"toxicity"`
}

func (f *DrugBankFetcher) Fetch(ctx context.Context, query string, limit int) ([]domain.RawHit, error) {
	name := DrugNameFromQuestion(query)
	if name == "" {
		return nil, nil
	}
	if f.apiKey == "" {
		return []domain.RawHit{pageHit(name)}, nil
	}

	var drugs []drugBankDrug
	params := url.Values{"q": {name}, "per_page": {strconv.Itoa(max(1, limit))}}
	if err := f.api.getJSON(ctx, "/drugs", params, &drugs, "search"); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	hits := make([]domain.RawHit, 0, len(drugs))
	for _, drug := range drugs {
		if limit > 0 && len(hits) >= limit {
			break
		}
		if drug.DrugBankID == "" {
			continue
		}
		sections := []labels.Section{
			{Heading: "Indication", Text: drug.Indication},
			{Heading: "Mechanism Of Action", Text: drug.MechanismOfAction},
			{Heading: "Toxicity", Text: drug.Toxicity},
		}
		header := "DrugBank: " + drug.Name
		if desc := strings.TrimSpace(drug.Description); desc != "" {
			header += "\n" + labels.Truncate(desc, labels.MaxSectionLength)
		}
		hits = append(hits, domain.RawHit{
			Source:     string(domain.SourceDrugBank),
			ExternalID: drug.DrugBankID,
			URL:        "https://go.drugbank.com/drugs/" + url.PathEscape(drug.DrugBankID),
			Title:      drug.Name,
			Text:       labels.FormatSections(header, sections),
			Score:      baseScore,
		})
	}
	return hits, nil
}

func pageHit(name string) domain.RawHit {
	slug := strings.ReplaceAll(strings.ToLower(name), " ", "-")
	return domain.RawHit{
		Source:     string(domain.SourceDrugBank),
		ExternalID: strings.ReplaceAll(strings.ToLower(name), " ", "_"),
		URL:        "https://go.drugbank.com/drugs/" + url.PathEscape(slug),
		Title:      "DrugBank: " + name,
		Text: fmt.Sprintf("DrugBank information for %s. Interactions, mechanism of action and "+
			"pharmacokinetics are available on the DrugBank website.", name),
		Score: baseScore,
	}
}
