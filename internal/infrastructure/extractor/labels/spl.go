package labels

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxSectionLength bounds each section body copied into document text.
const MaxSectionLength = 1500

const minSectionBody = 50

// Section is one coded section of a structured product label.
type Section struct {
	Code    string
	Heading string
	Text    string
}

// splSections maps LOINC section codes onto the heading written into text.
var splSections = map[string]string{
	"34066-1": "Boxed Warning",
	"34067-9": "Indications And Usage",
	"34068-7": "Dosage And Administration",
	"34070-3": "Contraindications",
	"34071-1": "Warnings",
	"43685-7": "Warnings And Precautions",
	"42232-9": "Precautions",
	"34084-4": "Adverse Reactions",
	"34073-7": "Drug Interactions",
	"34090-1": "Clinical Pharmacology",
	"43679-0": "Mechanism Of Action",
}

// SPL is the parsed subset of a DailyMed structured product label.
type SPL struct {
	Title    string
	Sections []Section
}

type splFrame struct {
	code    string
	title   strings.Builder
	body    strings.Builder
	inTitle bool
}

// ParseSPL walks SPL XML and returns the document title and every section
// with a known code, in document order. Text of uncoded subsections is
// folded into the enclosing section.
func ParseSPL(r io.Reader) (SPL, error) {
	var (
		out       SPL
		stack     []*splFrame
		docTitle  strings.Builder
		inDocName bool
	)
	tokenizer := html.NewTokenizer(r)
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != nil && err != io.EOF {
				return SPL{}, fmt.Errorf("parse spl: %w", err)
			}
			out.Title = normalizeText(docTitle.String())
			return out, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			switch string(name) {
			case "section":
				if tt == html.StartTagToken {
					stack = append(stack, &splFrame{})
				}
			case "code":
				if len(stack) > 0 && stack[len(stack)-1].code == "" && hasAttr {
					stack[len(stack)-1].code = attrValue(tokenizer, "code")
				}
			case "title":
				if tt != html.StartTagToken {
					continue
				}
				if len(stack) == 0 {
					inDocName = out.Title == "" && docTitle.Len() == 0
				} else {
					stack[len(stack)-1].inTitle = true
				}
			default:
				if _, ok := blockTags[atom.Lookup(name)]; ok && len(stack) > 0 {
					stack[len(stack)-1].body.WriteByte('\n')
				}
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "title":
				inDocName = false
				if len(stack) > 0 {
					stack[len(stack)-1].inTitle = false
				}
			case "section":
				if len(stack) == 0 {
					continue
				}
				frame := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if heading, ok := splSections[frame.code]; ok {
					out.Sections = append(out.Sections, Section{
						Code:    frame.code,
						Heading: heading,
						Text:    normalizeText(frame.body.String()),
					})
					continue
				}
				if len(stack) > 0 {
					parent := stack[len(stack)-1]
					parent.body.WriteByte('\n')
					parent.body.WriteString(frame.body.String())
				}
			default:
				if _, ok := blockTags[atom.Lookup(name)]; ok && len(stack) > 0 {
					stack[len(stack)-1].body.WriteByte('\n')
				}
			}
		case html.TextToken:
			text := tokenizer.Text()
			switch {
			case len(stack) > 0 && stack[len(stack)-1].inTitle:
				stack[len(stack)-1].title.Write(text)
			case len(stack) > 0:
				stack[len(stack)-1].body.Write(text)
				stack[len(stack)-1].body.WriteByte(' ')
			case inDocName:
				docTitle.Write(text)
			}
		}
	}
}

// Text renders the coded sections as "Heading: body" paragraphs, or "" when
// no section carries enough text.
func (s SPL) Text(drugName string) string {
	body := FormatSections("", s.Sections)
	if body == "" {
		return ""
	}
	return fmt.Sprintf("DailyMed Package Insert for %s:\n\n%s", drugName, body)
}

func attrValue(tokenizer *html.Tokenizer, key string) string {
	for {
		k, v, more := tokenizer.TagAttr()
		if string(k) == key {
			return string(v)
		}
		if !more {
			return ""
		}
	}
}

func flatten(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
