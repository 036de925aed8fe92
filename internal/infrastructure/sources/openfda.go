package sources

import (
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

const DefaultOpenFDAURL = "https://api.fda.gov"

const openFDALabelURL = "https://www.accessdata.fda.gov/scripts/cder/drugsatfda/"

// OpenFDAFetcher reads drug labels and adverse event reports. Half of the
// budget goes to each.
type OpenFDAFetcher struct {
	api    *restClient
	apiKey string
	logger *slog.Logger
}

func NewOpenFDA(baseURL, apiKey string, executor *resilience.Executor, logger *slog.Logger) *OpenFDAFetcher {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOpenFDAURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenFDAFetcher{
		api:    newRESTClient("openfda", baseURL, executor),
		apiKey: strings.TrimSpace(apiKey),
		logger: logger,
	}
}

func (f *OpenFDAFetcher) Source() domain.Source { return domain.SourceOpenFDA }

type openFDAIndex struct {
	GenericName []string `json:"generic_name"`
	BrandName   []string `json:"brand_name"`
	RxCUI       []string `json:"rxcui"`
}

type openFDALabel struct {
	ID                      string       `json:"id"`
	SetID                   string       `json:"set_id"`
	OpenFDA                 openFDAIndex `json:"openfda"`
	BoxedWarning            []string     `json:"boxed_warning"`
	AdverseReactions        []string     `json:"adverse_reactions"`
	WarningsAndCautions     []string     `json:"warnings_and_cautions"`
	Warnings                []string     `json:"warnings"`
	Contraindications       []string     `json:"contraindications"`
	DrugInteractions        []string     `json:"drug_interactions"`
	IndicationsAndUsage     []string     `json:"indications_and_usage"`
	DosageAndAdministration []string     `json:"dosage_and_administration"`
	MechanismOfAction       []string     `json:"mechanism_of_action"`
	ClinicalPharmacology    []string     `json:"clinical_pharmacology"`
}

// sections lists the label sections in the order they are written, safety
// information first.
func (l openFDALabel) sections() []labels.Section {
	pairs := []struct {
		heading string
		values  []string
	}{
		{"Adverse Reactions", l.AdverseReactions},
		{"Warnings And Precautions", l.WarningsAndCautions},
		{"Boxed Warning", l.BoxedWarning},
		{"Contraindications", l.Contraindications},
		{"Drug Interactions", l.DrugInteractions},
		{"Warnings", l.Warnings},
		{"Indications And Usage", l.IndicationsAndUsage},
		{"Dosage And Administration", l.DosageAndAdministration},
		{"Mechanism Of Action", l.MechanismOfAction},
		{"Clinical Pharmacology", l.ClinicalPharmacology},
	}
	out := make([]labels.Section, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair.values) == 0 {
			continue
		}
		out = append(out, labels.Section{Heading: pair.heading, Text: pair.values[0]})
	}
	return out
}

type openFDAEvent struct {
	SafetyReportID string `json:"safetyreportid"`
	Patient        struct {
		Drug []struct {
			MedicinalProduct string       `json:"medicinalproduct"`
			OpenFDA          openFDAIndex `json:"openfda"`
		} `json:"drug"`
		Reaction []struct {
			Term string `json:"reactionmeddrapt"`
		} `json:"reaction"`
	} `json:"patient"`
}

func (f *OpenFDAFetcher) Fetch(ctx context.Context, query string, limit int) ([]domain.RawHit, error) {
	name := DrugNameFromQuestion(query)
	if name == "" {
		return nil, nil
	}
	half := max(1, limit/2)

	hits, err := f.labels(ctx, name, half)
	if err != nil {
		return nil, err
	}
	events, err := f.events(ctx, name, half)
	if err != nil {
		if len(hits) == 0 {
			return nil, err
		}
		f.logger.Warn("openfda_events_failed", "drug", name, "error", err)
	}
	return append(hits, events...), nil
}

func (f *OpenFDAFetcher) labels(ctx context.Context, name string, limit int) ([]domain.RawHit, error) {
	var payload struct {
		Results []openFDALabel `json:"results"`
	}
	params := f.params(fmt.Sprintf("openfda.generic_name:%q", name), limit)
	if err := f.api.getJSON(ctx, "/drug/label.json", params, &payload, "label"); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	hits := make([]domain.RawHit, 0, len(payload.Results))
	for _, label := range payload.Results {
		generic := first(label.OpenFDA.GenericName)
		brand := first(label.OpenFDA.BrandName)
		title := generic
		header := "OpenFDA Drug Label: " + generic
		if brand != "" {
			title = fmt.Sprintf("%s (%s)", generic, brand)
			header += "\nBrand Name: " + brand
		}
		id := label.SetID
		if id == "" {
			id = label.ID
		}
		if id == "" {
			id = strings.ReplaceAll(generic+"_"+brand, " ", "_")
		}
		hits = append(hits, domain.RawHit{
			Identity:   first(label.OpenFDA.RxCUI),
			Source:     string(domain.SourceOpenFDA),
			ExternalID: id,
			URL:        openFDALabelURL,
			Title:      title,
			Text:       labels.FormatSections(header, label.sections()),
			Score:      baseScore,
		})
	}
	return hits, nil
}

// events keeps only reports whose suspect product actually names the drug.
func (f *OpenFDAFetcher) events(ctx context.Context, name string, limit int) ([]domain.RawHit, error) {
	var payload struct {
		Results []openFDAEvent `json:"results"`
	}
	params := f.params(fmt.Sprintf("patient.drug.medicinalproduct:%q", name), limit*2)
	if err := f.api.getJSON(ctx, "/drug/event.json", params, &payload, "event"); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var hits []domain.RawHit
	for _, event := range payload.Results {
		if len(hits) >= limit {
			break
		}
		if len(event.Patient.Drug) == 0 {
			continue
		}
		drug := event.Patient.Drug[0]
		product := drug.MedicinalProduct
		if !strings.Contains(strings.ToLower(product), strings.ToLower(name)) {
			continue
		}
		terms := make([]string, 0, len(event.Patient.Reaction))
		for _, reaction := range event.Patient.Reaction {
			if term := strings.TrimSpace(reaction.Term); term != "" {
				terms = append(terms, term)
			}
		}
		text := "OpenFDA Adverse Event: " + product
		if len(terms) > 0 {
			text += "\n\nReactions: " + strings.Join(terms, "; ")
		}
		hits = append(hits, domain.RawHit{
			Identity:   first(drug.OpenFDA.RxCUI),
			Source:     string(domain.SourceOpenFDA),
			ExternalID: "ae_" + event.SafetyReportID,
			URL:        openFDALabelURL,
			Title:      "Adverse Event: " + product,
			Text:       text,
			Score:      baseScore,
		})
	}
	return hits, nil
}

func (f *OpenFDAFetcher) params(search string, limit int) url.Values {
	params := url.Values{
		"search": {search},
		"limit":  {strconv.Itoa(limit)},
	}
	if f.apiKey != "" {
		params.Set("api_key", f.apiKey)
	}
	return params
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
