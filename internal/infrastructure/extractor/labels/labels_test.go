package labels

import (
	"strings"
	"testing"

	"github.com/kirillkom/rxverify/internal/core/domain"
)

const sampleSPL = `<?xml version="1.0" encoding="UTF-8"?>
<document xmlns="urn:hl7-org:v3">
  <title>STROMECTOL (ivermectin) tablet</title>
  <component><structuredBody>
    <section>
      <code code="34068-7" codeSystem="2.16.840.1.113883.6.1" displayName="DOSAGE &amp; ADMINISTRATION"/>
      <title>DOSAGE AND ADMINISTRATION</title>
      <text><paragraph>The recommended dosage of STROMECTOL for the treatment of strongyloidiasis is a single oral dose designed to provide approximately 200 mcg of ivermectin per kg of body weight.</paragraph></text>
    </section>
    <section>
      <code code="34084-4" codeSystem="2.16.840.1.113883.6.1"/>
      <title>ADVERSE REACTIONS</title>
      <text><paragraph>In clinical trials the following adverse reactions were reported &lt;1% of the time:</paragraph></text>
      <section>
        <title>Strongyloidiasis</title>
        <text><paragraph>Diarrhea, nausea, dizziness and pruritus were reported in patients treated for strongyloidiasis.</paragraph></text>
      </section>
    </section>
    <section>
      <code code="99999-9"/>
      <title>PACKAGE LABEL</title>
      <text>NDC 0006-0032-20</text>
    </section>
  </structuredBody></component>
</document>`

func TestParseSPLReadsCodedSections(t *testing.T) {
	spl, err := ParseSPL(strings.NewReader(sampleSPL))
	if err != nil {
		t.Fatalf("ParseSPL() error = %v", err)
	}
	if spl.Title != "STROMECTOL (ivermectin) tablet" {
		t.Fatalf("unexpected title %q", spl.Title)
	}
	if len(spl.Sections) != 2 {
		t.Fatalf("expected two coded sections, got %+v", spl.Sections)
	}
	if spl.Sections[0].Heading != "Dosage And Administration" {
		t.Fatalf("unexpected first heading %q", spl.Sections[0].Heading)
	}
	adverse := spl.Sections[1].Text
	if !strings.Contains(adverse, "<1%") || !strings.Contains(adverse, "Diarrhea, nausea") {
		t.Fatalf("expected subsection text folded into adverse reactions, got %q", adverse)
	}
	if strings.Contains(adverse, "Strongyloidiasis\n") || strings.Contains(adverse, "NDC") {
		t.Fatalf("unexpected text in adverse reactions: %q", adverse)
	}
}

func TestSPLTextRoundTripsThroughSectionExtractor(t *testing.T) {
	spl, err := ParseSPL(strings.NewReader(sampleSPL))
	if err != nil {
		t.Fatalf("ParseSPL() error = %v", err)
	}
	doc := domain.RetrievedDocument{
		Source:     domain.SourceDailyMed,
		ExternalID: "set-1",
		Text:       spl.Text("ivermectin"),
	}
	if !strings.HasPrefix(doc.Text, "DailyMed Package Insert for ivermectin:") {
		t.Fatalf("unexpected text header: %q", doc.Text)
	}

	fields, err := SectionExtractor{}.Extract(doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(fields[domain.FieldDosage], "200 mcg of ivermectin per kg") {
		t.Fatalf("unexpected dosage %q", fields[domain.FieldDosage])
	}
	if !strings.Contains(fields[domain.FieldAdverseEvents], "dizziness") {
		t.Fatalf("unexpected adverse events %q", fields[domain.FieldAdverseEvents])
	}
	if _, ok := fields[domain.FieldWarnings]; ok {
		t.Fatalf("did not expect warnings, got %q", fields[domain.FieldWarnings])
	}
}

func TestSectionExtractorFirstParagraphWins(t *testing.T) {
	doc := domain.RetrievedDocument{
		Source: domain.SourceOpenFDA,
		Text: "OpenFDA Drug Label: lisinopril\nBrand Name: Zestril\n\n" +
			"Warnings And Precautions: Angioedema may occur.\n\n" +
			"Warnings: Fetal toxicity.\n\n" +
			"Drug Interactions: Diuretics, NSAIDs.",
	}
	fields, err := SectionExtractor{}.Extract(doc)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if fields[domain.FieldWarnings] != "Angioedema may occur." {
		t.Fatalf("unexpected warnings %q", fields[domain.FieldWarnings])
	}
	if fields[domain.FieldInteractions] != "Diuretics, NSAIDs." {
		t.Fatalf("unexpected interactions %q", fields[domain.FieldInteractions])
	}
	if len(fields) != 2 {
		t.Fatalf("expected header paragraph to be ignored, got %v", fields)
	}
}

func TestSectionExtractorRejectsEmptyText(t *testing.T) {
	if _, err := (SectionExtractor{}).Extract(domain.RetrievedDocument{Source: domain.SourceRxNorm, Text: "  "}); err == nil {
		t.Fatalf("expected error for empty text")
	}
}

func TestCleanMarkupKeepsParagraphs(t *testing.T) {
	got := CleanMarkup("<p>Take with   food.</p><p>Avoid&nbsp;alcohol &amp; grapefruit.</p>")
	if got != "Take with food.\n\nAvoid alcohol & grapefruit." {
		t.Fatalf("unexpected cleaned text %q", got)
	}
}

func TestTruncatePrefersSentenceBoundary(t *testing.T) {
	text := "First sentence. Second sentence is longer. Third."
	if got := Truncate(text, 30); got != "First sentence." {
		t.Fatalf("Truncate() = %q", got)
	}
	if got := Truncate(strings.Repeat("a", 40), 20); got != strings.Repeat("a", 10)+"..." {
		t.Fatalf("Truncate() without sentence = %q", got)
	}
	if got := Truncate("short", 20); got != "short" {
		t.Fatalf("Truncate() short = %q", got)
	}
}

func TestRegistryCoversEverySource(t *testing.T) {
	registry := Registry()
	for _, source := range domain.AllSources() {
		if registry[source] == nil {
			t.Fatalf("missing extractor for %s", source)
		}
	}
}
