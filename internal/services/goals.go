package services

import (
	"fmt"
	"strings"

	"github.com/inkwell-app/inkwell/internal/models"
)

// goalTemplates holds the instruction preamble for each content goal. The
// goal selects tone and structure; the target language and vocabulary are
// appended separately.
var goalTemplates = map[string]string{
	"newsletter": `Write an engaging email newsletter from the source material below.
Use a warm, direct tone. Open with a short hook, organize the body into
clearly separated sections with headings, and close with a brief sign-off.
Keep paragraphs short.`,

	"blog_post": `Write a well-structured blog post from the source material below.
Use an informative, approachable tone. Start with a compelling introduction,
develop the main points under descriptive headings, and end with a conclusion
that ties the points together.`,

	"story": `Write a narrative story from the source material below.
Use vivid, concrete language and a consistent point of view. Shape the
material into a beginning, a development and an ending; keep dialogue natural
where the sources contain spoken words.`,

	"essay": `Write a structured essay from the source material below.
State a clear thesis early, support it with arguments drawn from the sources,
address counterpoints where the material suggests them, and finish with a
conclusion that follows from the argument.`,

	"proofreading": `Proofread and correct the source material below.
Fix spelling, grammar and punctuation without changing the author's voice,
meaning or structure. Return the corrected text in full.`,

	"translation": `Translate the source material below faithfully.
Preserve meaning, register and formatting. Do not summarize or localize
beyond what faithful translation requires.`,

	"summary": `Write a concise summary of the source material below.
Cover every major point, keep the original emphasis, and omit nothing that
changes the overall meaning. Use neutral, clear language.`,
}

// ValidGoal reports whether the goal is one of the enumerated content goals.
func ValidGoal(goal string) bool {
	_, ok := goalTemplates[goal]
	return ok
}

// Goals lists the supported content goals.
func Goals() []string {
	out := make([]string, 0, len(goalTemplates))
	for g := range goalTemplates {
		out = append(out, g)
	}
	return out
}

// buildConsolidatedPrompt concatenates the goal instructions, the language
// directive, the vocabulary list and every reference's extracted text wrapped
// in BEGIN/END SOURCE markers. Each reference's usage notes, when present,
// prefix its block.
func buildConsolidatedPrompt(goal, language, extraInstructions string, vocabulary []string, refs []models.Reference) string {
	var b strings.Builder

	b.WriteString(goalTemplates[goal])
	b.WriteString("\n")

	if language != "" {
		fmt.Fprintf(&b, "\nWrite the output in %s.\n", language)
	}
	if len(vocabulary) > 0 {
		b.WriteString("\nPreferred terminology, use these terms consistently:\n")
		for _, v := range vocabulary {
			fmt.Fprintf(&b, "- %s\n", v)
		}
	}
	if extraInstructions != "" {
		fmt.Fprintf(&b, "\nAdditional instructions: %s\n", extraInstructions)
	}

	b.WriteString("\nThe source material follows. Use all of it.\n")
	for _, ref := range refs {
		b.WriteString("\n")
		if ref.UsageNotes != "" {
			fmt.Fprintf(&b, "Notes for this source: %s\n", ref.UsageNotes)
		}
		fmt.Fprintf(&b, "BEGIN SOURCE: %s\n%s\nEND SOURCE: %s\n", ref.Name, ref.ExtractedText, ref.Name)
	}

	return b.String()
}
