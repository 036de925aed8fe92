package qdrant

import (
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"
)

type sparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

const (
	docBM25K1      = 1.2
	queryBM25K     = 1.2
	titleBoost     = 2.0
	maxSparseTerms = 256
)

// questionNoise is dropped from queries so that "what are the side effects
// of ibuprofen" weighs the drug name, not the phrasing.
var questionNoise = map[string]struct{}{
	"what": {}, "are": {}, "the": {}, "of": {}, "is": {}, "for": {}, "how": {},
	"should": {}, "can": {}, "does": {}, "do": {}, "with": {}, "and": {}, "to": {},
}

func encodeSparseDocument(text string, title string) sparseVector {
	termFreq := make(map[uint32]float64, 64)
	appendTermFreq(termFreq, tokenizeDrugText(text), 1.0)
	appendTermFreq(termFreq, tokenizeDrugText(title), titleBoost)
	return termFreqToSparse(termFreq, docBM25K1)
}

func encodeSparseQuery(query string) sparseVector {
	tokens := tokenizeDrugText(query)
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, noise := questionNoise[tok]; !noise {
			kept = append(kept, tok)
		}
	}
	termFreq := make(map[uint32]float64, 32)
	appendTermFreq(termFreq, kept, 1.0)
	return termFreqToSparse(termFreq, queryBM25K)
}

func appendTermFreq(dst map[uint32]float64, tokens []string, tokenWeight float64) {
	for _, token := range tokens {
		if token == "" {
			continue
		}
		dst[hashToken(token)] += tokenWeight
	}
}

func termFreqToSparse(tf map[uint32]float64, k float64) sparseVector {
	if len(tf) == 0 {
		return sparseVector{}
	}
	indices := make([]uint32, 0, len(tf))
	for idx := range tf {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	if len(indices) > maxSparseTerms {
		indices = indices[:maxSparseTerms]
	}

	values := make([]float32, 0, len(indices))
	for _, idx := range indices {
		tfValue := tf[idx]
		weight := (tfValue * (k + 1.0)) / (tfValue + k)
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			weight = 0
		}
		values = append(values, float32(weight))
	}
	return sparseVector{Indices: indices, Values: values}
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	if sum := h.Sum32(); sum != 0 {
		return sum
	}
	return 1
}

// tokenizeDrugText lower-cases letters of any script and keeps decimal
// strengths such as "0.8" as one token. Single-rune tokens are dropped.
func tokenizeDrugText(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	flush := func() {
		if tok := strings.TrimRight(b.String(), "."); len([]rune(tok)) > 1 {
			out = append(out, tok)
		}
		b.Reset()
	}
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '.' && b.Len() > 0:
			b.WriteRune(r)
		default:
			if b.Len() > 0 {
				flush()
			}
		}
	}
	if b.Len() > 0 {
		flush()
	}
	return out
}
