package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/rxverify/internal/core/domain"
	"github.com/kirillkom/rxverify/internal/core/ports"
)

const importFetchLimit = 5

var (
	brandAnnotationPattern = regexp.MustCompile(`\[([^\]]+)\]`)
	combinationSeparators  = []string{" and ", " + ", " / "}
)

type ImportDrugUseCase struct {
	repo     ports.ImportRepository
	fetcher  ports.SourceFetcher
	catalog  ports.DrugCatalog
	embedder ports.DocumentEmbedder
	index    ports.CandidateIndex
	now      func() time.Time
}

// NewImportDrugUseCase builds the worker side of catalogue import. embedder
// and index may be nil, in which case entries are not indexed for retrieval.
func NewImportDrugUseCase(
	repo ports.ImportRepository,
	fetcher ports.SourceFetcher,
	catalog ports.DrugCatalog,
	embedder ports.DocumentEmbedder,
	index ports.CandidateIndex,
) *ImportDrugUseCase {
	return &ImportDrugUseCase{
		repo:     repo,
		fetcher:  fetcher,
		catalog:  catalog,
		embedder: embedder,
		index:    index,
		now:      time.Now,
	}
}

func (uc *ImportDrugUseCase) ProcessByID(ctx context.Context, requestID string) error {
	if err := uc.repo.UpdateStatus(ctx, requestID, domain.ImportStatusProcessing, "", ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	entry, err := uc.importPipeline(ctx, requestID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, requestID, domain.ImportStatusFailed, "", err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.UpdateStatus(ctx, requestID, domain.ImportStatusReady, entry.ID, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ImportDrugUseCase) importPipeline(ctx context.Context, requestID string) (*domain.DrugEntry, error) {
	req, err := uc.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("fetch import request by id: %w", err)
	}

	hit, err := uc.lookup(ctx, req.DrugName)
	if err != nil {
		return nil, err
	}

	entry := BuildDrugEntry(req.DrugName, hit, uc.fetcher.Source(), uc.now().UTC())
	if err := uc.catalog.UpsertDrug(ctx, entry); err != nil {
		return nil, fmt.Errorf("upsert drug: %w", err)
	}

	if err := uc.indexEntry(ctx, entry, hit); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (uc *ImportDrugUseCase) lookup(ctx context.Context, name string) (domain.RawHit, error) {
	hits, err := uc.fetcher.Fetch(ctx, name, importFetchLimit)
	if err != nil {
		return domain.RawHit{}, fmt.Errorf("fetch %s: %w", uc.fetcher.Source(), err)
	}
	for _, hit := range hits {
		if strings.TrimSpace(hit.Title) != "" && strings.TrimSpace(hit.ExternalID) != "" {
			return hit, nil
		}
	}
	return domain.RawHit{}, domain.WrapError(domain.ErrDrugNotFound, "lookup drug", fmt.Errorf("no %s record for %q", uc.fetcher.Source(), name))
}

func (uc *ImportDrugUseCase) indexEntry(ctx context.Context, entry domain.DrugEntry, hit domain.RawHit) error {
	if uc.embedder == nil || uc.index == nil {
		return nil
	}
	text := strings.TrimSpace(hit.Text)
	if text == "" {
		text = entry.Name
	}
	doc := domain.RetrievedDocument{
		DrugIdentity: entry.RxNormID,
		Source:       uc.fetcher.Source(),
		ExternalID:   hit.ExternalID,
		URL:          hit.URL,
		Title:        hit.Title,
		Text:         text,
		Score:        1,
	}

	vectors, err := uc.embedder.Embed(ctx, []string{doc.Text})
	if err != nil {
		return fmt.Errorf("embed entry: %w", err)
	}
	if len(vectors) != 1 {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed entry",
			fmt.Errorf("vectors/documents mismatch: %d/1", len(vectors)),
		)
	}
	if err := uc.index.IndexDocuments(ctx, []domain.RetrievedDocument{doc}, vectors); err != nil {
		return fmt.Errorf("index entry: %w", err)
	}
	return nil
}

// BuildDrugEntry derives a curated catalogue entry from the requested name
// and the nomenclature record that matched it.
func BuildDrugEntry(requested string, hit domain.RawHit, source domain.Source, now time.Time) domain.DrugEntry {
	requestedName := strings.Join(strings.Fields(requested), " ")
	generic := TitleCase(BaseName(hit.Title))
	if generic == "" {
		generic = TitleCase(BaseName(requestedName))
	}
	if generic == "" {
		generic = TitleCase(requestedName)
	}

	brands := newOrderedSet(true)
	for _, m := range brandAnnotationPattern.FindAllStringSubmatch(hit.Title, -1) {
		if !strings.EqualFold(strings.TrimSpace(m[1]), generic) {
			brands.add(m[1])
		}
	}

	primary := strings.ToLower(requestedName)
	entry := domain.DrugEntry{
		ID:                "rxcui-" + hit.ExternalID,
		Name:              generic,
		Type:              domain.DrugTypeGeneric,
		BrandNames:        brands.values(),
		DrugClass:         domain.GenericDrugClass,
		CommonUses:        []string{},
		RxNormID:          hit.ExternalID,
		PrimarySearchTerm: primary,
		DataSource:        "Import Request (" + TitleCase(string(source)) + ")",
		Status:            domain.DrugStatusActive,
		UpdatedAt:         now,
	}

	lowered := strings.ToLower(generic)
	for _, sep := range combinationSeparators {
		if strings.Contains(lowered, sep) {
			entry.Type = domain.DrugTypeCombination
			break
		}
	}
	if entry.Type == domain.DrugTypeGeneric {
		for _, brand := range entry.BrandNames {
			if strings.EqualFold(brand, requestedName) {
				entry.Type = domain.DrugTypeBrand
				entry.Name = brand
				entry.GenericName = generic
				break
			}
		}
	}

	terms := newOrderedSet(true)
	terms.add(primary)
	terms.add(lowered)
	for _, b := range entry.BrandNames {
		terms.add(strings.ToLower(b))
	}
	entry.SearchTerms = terms.values()
	sort.Strings(entry.SearchTerms)
	return entry
}
