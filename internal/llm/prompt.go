package llm

import (
	"fmt"
	"strings"

	"github.com/ghigo/coinsort/internal/model"
)

// BuildClassificationPrompt assembles the prompt for one record. Only the
// registry's categories are offered; the instructions tell the model that a
// low-confidence answer beats a confident wrong one.
func BuildClassificationPrompt(description string, price float64, categories []model.Category) string {
	var b strings.Builder

	b.WriteString("Classify this purchase into exactly one of the allowed categories.\n\n")
	b.WriteString("Item: ")
	b.WriteString(description)
	b.WriteString("\n")
	if price > 0 {
		fmt.Fprintf(&b, "Price: %.2f\n", price)
	}

	b.WriteString("\nAllowed categories:\n")
	for _, cat := range categories {
		b.WriteString("- ")
		b.WriteString(cat.Name)
		if cat.Description != "" {
			b.WriteString(": ")
			b.WriteString(cat.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString(`
Rules:
- Only the category names listed above are valid answers.
- If you are unsure, pick the closest category and report LOW confidence.
  A low-confidence answer is better than a confidently wrong one.
- Confidence is an integer from 0 to 100.

Respond in exactly this format:
CATEGORY: <category name>
CONFIDENCE: <number>
REASONING: <one short sentence>
`)

	return b.String()
}
