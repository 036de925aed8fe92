package sources

import "strings"

var questionPrefixes = []string{
	"what are the side effects of",
	"what should i expect when taking",
	"what is",
	"tell me about",
	"how does",
	"what does",
	"side effects of",
	"information about",
	"details about",
}

// DrugNameFromQuestion strips common question phrasing so that providers
// are queried with the drug name only. Long leftovers keep the last word.
func DrugNameFromQuestion(question string) string {
	name := strings.ToLower(strings.TrimSpace(question))
	for _, prefix := range questionPrefixes {
		if strings.Contains(name, prefix) {
			name = strings.TrimSpace(strings.ReplaceAll(name, prefix, ""))
		}
	}
	name = strings.Trim(name, "?.,! ")

	words := strings.Fields(name)
	if len(words) > 3 {
		return words[len(words)-1]
	}
	return strings.Join(words, " ")
}
