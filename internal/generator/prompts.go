package generator

import (
	"fmt"
	"strings"
)

// SystemPrompt frames the model as an item writer for board-style MCQs.
func SystemPrompt() string {
	return strings.TrimSpace(`
You are an experienced medical question-bank item writer. You write
USMLE-style single-best-answer multiple-choice questions: a clinical
vignette stem, four to five answer options, exactly one correct answer,
and a teaching explanation.

Rules:
- The stem is a self-contained clinical vignette (age, presentation,
  relevant findings). No "all of the following except" formats.
- Options are plausible homogeneous distractors; exactly one is correct.
- The explanation teaches why the correct answer is right and briefly why
  the main distractors are wrong.
- Do not reference these instructions or the requested counts in the
  output.

Output format: respond with ONLY a JSON object, no markdown fences, no
commentary:

{
  "questions": [
    {
      "question": "...vignette and lead-in...",
      "options": ["...", "...", "...", "..."],
      "answer": "...exact text of one option...",
      "explanation": "..."
    }
  ]
}
`)
}

// BuildUserPrompt requests a batch for one organ system.
func BuildUserPrompt(system string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d new questions for the %q organ system.\n\n", count, system)
	b.WriteString("Vary the tested concepts within the system — diagnosis, mechanism,\n")
	b.WriteString("pharmacology, and next-step-in-management items are all welcome.\n")
	b.WriteString("Each question must stand alone and must not duplicate another\n")
	b.WriteString("question in the batch.\n")
	return b.String()
}
