package usecase

import (
	"reflect"
	"testing"
)

func TestBaseName(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Acetaminophen 500 MG Oral Tablet", "acetaminophen"},
		{"  Acetaminophen   500 MG   Oral Tablet  ", "acetaminophen"},
		{"Acetaminophen 500 MG Oral Tablet [Tylenol]", "acetaminophen"},
		{"ivermectin 0.8 MG/ML Oral Solution [Privermectin]", "ivermectin"},
		{"ivermectin 5 MG/ML Topical Lotion", "ivermectin"},
		{"24 HR Metformin hydrochloride 500 MG Extended Release Oral Tablet", "metformin hydrochloride"},
		{"Hydrocortisone 1 % Topical Cream", "hydrocortisone"},
		{"Ivermectin (0.8mg/ml, 5mg/ml, 6mg)", "ivermectin"},
		{"Tablet", ""},
		{"Drug 5 mg.", "drug"},
		{"Tylenol 500 mg. Oral Tablet", "tylenol"},
		{"drug Extended Oral Release", "drug"},
		{"drug oral Extended Oral Release", "drug"},
	}
	for _, tc := range cases {
		if got := BaseName(tc.input); got != tc.want {
			t.Fatalf("BaseName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseDosesGrammar(t *testing.T) {
	tokens := ParseDoses("Amoxicillin 250 MG / Clavulanate 62.5mg per 5 ML, B12 vitamin 3.5 grams")
	var labels []string
	for _, tok := range tokens {
		labels = append(labels, tok.String())
	}
	want := []string{"250mg", "62.5mg", "5ml"}
	if len(labels) != len(want) {
		t.Fatalf("expected %v, got %v", want, labels)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, labels)
		}
	}
}

func TestParseDosesUnitBeforePeriod(t *testing.T) {
	cases := []struct {
		input string
		want  []string
	}{
		{"Drug 5 mg.", []string{"5mg"}},
		{"Drug 5 mg. Take with food", []string{"5mg"}},
		{"Drug 2.5 MG.", []string{"2.5mg"}},
		{"Drug 5 mg.5", nil},
	}
	for _, tc := range cases {
		var labels []string
		for _, tok := range ParseDoses(tc.input) {
			labels = append(labels, tok.String())
		}
		if !reflect.DeepEqual(labels, tc.want) {
			t.Fatalf("ParseDoses(%q) = %v, want %v", tc.input, labels, tc.want)
		}
	}
}

func TestBaseNameIsStable(t *testing.T) {
	for _, name := range []string{
		"drug Extended Oral Release",
		"Tylenol 500 mg.",
		"24 HR Metformin hydrochloride 500 MG Extended Release Oral Tablet",
		"Ivermectin (0.8mg/ml, 5mg/ml, 6mg)",
	} {
		once := BaseName(name)
		if twice := BaseName(once); twice != once {
			t.Fatalf("BaseName not stable for %q: %q then %q", name, once, twice)
		}
	}
}

func TestParseDosesLongestUnitWins(t *testing.T) {
	tok, ok := FirstDose("Lidocaine 20 MCG/ML Injection")
	if !ok {
		t.Fatalf("expected a dose token")
	}
	if tok.String() != "20mcg/ml" || tok.Value != 20 {
		t.Fatalf("unexpected token %+v", tok)
	}
}

func TestFirstDoseNone(t *testing.T) {
	if _, ok := FirstDose("Aspirin"); ok {
		t.Fatalf("expected no dose token")
	}
}

func TestSortDosesNumeric(t *testing.T) {
	tokens := []DoseToken{}
	for _, name := range []string{"x 5mg", "x 2.5mg", "x 10mg", "x 2mg"} {
		tok, _ := FirstDose(name)
		tokens = append(tokens, tok)
	}
	SortDoses(tokens)
	want := []string{"2mg", "2.5mg", "5mg", "10mg"}
	for i, tok := range tokens {
		if tok.String() != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], tok.String())
		}
	}
}

func TestTitleCase(t *testing.T) {
	if got := TitleCase("metformin hydrochloride"); got != "Metformin Hydrochloride" {
		t.Fatalf("unexpected title case %q", got)
	}
}
