package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/rxverify/internal/core/domain"
)

const systemPrompt = `You are a drug information assistant for clinicians and pharmacists.
Answer ONLY from the context records below, which come from RxNorm, DailyMed, openFDA and DrugBank.
If the context does not contain the answer, say "Information not available in the provided sources".
Cite every statement inline as [SOURCE:ID].
When sources disagree, list the differing values with their source tags.
For side-effect questions list the common effects first, then serious warnings, grouped by organ system.
This is not medical advice; tell the user to consult a licensed professional.`

var fieldLabels = map[domain.Field]string{
	domain.FieldDosage:        "Dosage",
	domain.FieldIndications:   "Indications",
	domain.FieldWarnings:      "Warnings",
	domain.FieldAdverseEvents: "Adverse events",
	domain.FieldInteractions:  "Interactions",
	domain.FieldMechanism:     "Mechanism",
}

func buildAnswerPrompt(question string, unified domain.Unification) string {
	return fmt.Sprintf(`Question:
%s

Context:
%s
`, question, formatContext(unified))
}

func formatContext(unified domain.Unification) string {
	if len(unified.Records) == 0 {
		return "No relevant drug information found."
	}

	var b strings.Builder
	for _, record := range unified.Records {
		fmt.Fprintf(&b, "Drug: %s (identity: %s)\n", record.Name, record.IdentityKey)
		for _, field := range domain.KnownFields {
			evidence := record.Evidence(field)
			if len(evidence) == 0 {
				continue
			}
			entries := make([]string, 0, len(evidence))
			for _, ev := range evidence {
				entries = append(entries, strings.TrimSpace(ev.Value+" "+citations(ev.Sources)))
			}
			fmt.Fprintf(&b, "%s: %s\n", fieldLabels[field], strings.Join(entries, "; "))
		}
		if refs := citations(record.References); refs != "" {
			fmt.Fprintf(&b, "Sources: %s\n", refs)
		}
		b.WriteString("\n")
	}

	if len(unified.Disagreements) > 0 {
		b.WriteString("SOURCE DISAGREEMENTS:\n")
		for _, d := range unified.Disagreements {
			fmt.Fprintf(&b, "  %s for %s:\n", fieldLabels[d.Field], d.IdentityKey)
			for _, v := range d.Values {
				fmt.Fprintf(&b, "    - %s\n", v)
			}
		}
	}
	return b.String()
}

func citations(refs []domain.SourceReference) string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, fmt.Sprintf("[%s:%s]", strings.ToUpper(string(ref.Source)), ref.ExternalID))
	}
	return strings.Join(out, " ")
}

func buildFallbackAnswer(question string, unified domain.Unification) string {
	if len(unified.Records) == 0 {
		return fmt.Sprintf("I couldn't find any information about %q. Please rephrase the question or consult a healthcare professional.", question)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on the available information about your question: %q\n\n", question)
	for _, record := range unified.Records {
		fmt.Fprintf(&b, "Drug: %s\n", record.Name)
		if dosage := record.Evidence(domain.FieldDosage); len(dosage) > 0 {
			b.WriteString("Dosage Information:\n")
			for _, ev := range dosage {
				fmt.Fprintf(&b, "  - %s\n", strings.TrimSpace(ev.Value+" "+citations(ev.Sources)))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("Note: the language model was unavailable; consult a healthcare professional for complete guidance.")
	return b.String()
}
