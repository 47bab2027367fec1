package promptbuilder

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"campusassist/internal/models"
)

// Supported interaction modes and answer languages.
const (
	ModeGeneral   = "general"
	ModeWhereToGo = "where-to-go"
	ModeDeadline  = "deadline"

	LangEnglish = "en"
	LangAmharic = "am"
)

// excerptBudget caps how much of each document's content goes into the
// prompt; truncation happens at the last word boundary before the cap.
const excerptBudget = 600

const preamble = `You are Campus Assist, the university's student help-desk assistant.
Rules:
- Answer only from the campus knowledge provided below and general university common sense.
- Be concise and practical; students are usually in a hurry.
- Cite the document a fact came from by its title.
- If the provided knowledge does not cover the question, say so plainly instead of guessing.`

const whereToGoBlock = `The student is asking where to go to get something done. In your answer, include:
- the exact office location,
- the documents they must bring,
- the step-by-step process in order,
- contact details for follow-up questions.`

const deadlineBlock = `The student is asking about deadlines. In your answer:
- state every relevant date and timeline explicitly,
- warn about preparation steps that take time (signatures, payments, document pickup),
- mention what happens if the deadline is missed, when known.`

const amharicDirective = `Respond in Amharic (አማርኛ). Keep office names and form numbers in their original spelling.`

const englishDirective = `Respond in English.`

// NormalizeMode maps unknown modes onto the default.
func NormalizeMode(mode string) string {
	switch mode {
	case ModeWhereToGo, ModeDeadline:
		return mode
	default:
		return ModeGeneral
	}
}

// NormalizeLanguage maps unknown languages onto the default.
func NormalizeLanguage(lang string) string {
	if lang == LangAmharic {
		return LangAmharic
	}
	return LangEnglish
}

// Build assembles the generation prompt: preamble, mode block, language
// directive, retrieved context, then the question, in that fixed order.
// With no context documents the context section is omitted entirely —
// the degraded, still-answerable condition.
func Build(question string, contextDocs []models.ScoredDocument, language, mode string) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n")

	switch NormalizeMode(mode) {
	case ModeWhereToGo:
		b.WriteString("\n")
		b.WriteString(whereToGoBlock)
		b.WriteString("\n")
	case ModeDeadline:
		b.WriteString("\n")
		b.WriteString(deadlineBlock)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if NormalizeLanguage(language) == LangAmharic {
		b.WriteString(amharicDirective)
	} else {
		b.WriteString(englishDirective)
	}
	b.WriteString("\n")

	if len(contextDocs) > 0 {
		b.WriteString("\nCampus knowledge:\n")
		for i, doc := range contextDocs {
			writeContextEntry(&b, i+1, doc)
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

func writeContextEntry(b *strings.Builder, ordinal int, doc models.ScoredDocument) {
	fmt.Fprintf(b, "\n[%d] %s", ordinal, doc.Title)
	if doc.Score > 0 {
		fmt.Fprintf(b, " (relevance %.1f%%)", doc.Score*100)
	}
	b.WriteString("\n")
	b.WriteString(Excerpt(doc.Content, excerptBudget))
	b.WriteString("\n")

	m := doc.Metadata
	if m.Empty() {
		return
	}
	if m.OfficeLocation != "" {
		fmt.Fprintf(b, "Office: %s\n", m.OfficeLocation)
	}
	if len(m.RequiredDocuments) > 0 {
		fmt.Fprintf(b, "Required documents: %s\n", strings.Join(m.RequiredDocuments, ", "))
	}
	if len(m.ProcessSteps) > 0 {
		fmt.Fprintf(b, "Process: %s\n", strings.Join(m.ProcessSteps, " -> "))
	}
	if m.DeadlineDate != nil {
		fmt.Fprintf(b, "Deadline: %s\n", m.DeadlineDate.Format("January 2, 2006"))
	}
	if m.Contact != nil {
		if m.Contact.Phone != "" {
			fmt.Fprintf(b, "Phone: %s\n", m.Contact.Phone)
		}
		if m.Contact.Email != "" {
			fmt.Fprintf(b, "Email: %s\n", m.Contact.Email)
		}
	}
}

// Excerpt truncates s to at most budget runes, cutting at the last
// word boundary before the cap and appending an ellipsis. Counting
// runes keeps the cut on a character boundary for multi-byte scripts.
func Excerpt(s string, budget int) string {
	if budget <= 0 || utf8.RuneCountInString(s) <= budget {
		return s
	}
	cut := string([]rune(s)[:budget])
	if i := strings.LastIndexAny(cut, " \n"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \n") + "…"
}
