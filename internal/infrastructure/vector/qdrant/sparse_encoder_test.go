package qdrant

import (
	"reflect"
	"testing"
)

func TestEncodeSparseQueryDeterministic(t *testing.T) {
	v1 := encodeSparseQuery("Ivermectin 0.8 MG/ML oral solution")
	v2 := encodeSparseQuery("Ivermectin 0.8 MG/ML oral solution")
	if !reflect.DeepEqual(v1, v2) {
		t.Fatalf("expected deterministic encoding: %+v vs %+v", v1, v2)
	}
}

func TestEncodeSparseQuerySortsIndices(t *testing.T) {
	v := encodeSparseQuery("zolpidem atorvastatin metformin lisinopril")
	if len(v.Indices) != 4 {
		t.Fatalf("expected 4 terms, got %d", len(v.Indices))
	}
	for i := 1; i < len(v.Indices); i++ {
		if v.Indices[i-1] > v.Indices[i] {
			t.Fatalf("indices not sorted at %d: %d > %d", i, v.Indices[i-1], v.Indices[i])
		}
	}
}

func TestEncodeSparseQueryDropsQuestionNoise(t *testing.T) {
	withNoise := encodeSparseQuery("what are the side effects of ibuprofen")
	bare := encodeSparseQuery("side effects ibuprofen")
	if !reflect.DeepEqual(withNoise, bare) {
		t.Fatalf("expected question words ignored: %+v vs %+v", withNoise, bare)
	}
	if v := encodeSparseQuery("___---!!!"); len(v.Indices) != 0 {
		t.Fatalf("expected empty sparse vector, got %+v", v)
	}
}

func TestTokenizeDrugText(t *testing.T) {
	got := tokenizeDrugText("Ивермектин 0.8 MG/ML. Tablet, x")
	want := []string{"ивермектин", "0.8", "mg", "ml", "tablet"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestEncodeSparseDocumentBoostsTitle(t *testing.T) {
	v := encodeSparseDocument("tablet", "tablet")
	plain := encodeSparseDocument("tablet", "")
	if len(v.Values) != 1 || v.Values[0] <= plain.Values[0] {
		t.Fatalf("expected title occurrence to raise weight: %+v vs %+v", v, plain)
	}
}
