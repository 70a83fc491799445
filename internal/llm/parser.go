package llm

import (
	"fmt"
	"strconv"
	"strings"
)

// parsedResponse holds the fields extracted from a raw model response.
type parsedResponse struct {
	Category   string
	Reasoning  string
	Confidence int
}

// parseResponse extracts the CATEGORY, CONFIDENCE, and REASONING lines from
// a model response. Only the first occurrence of each label counts, and
// surrounding chatter is ignored, since models routinely wrap the requested
// format in extra prose.
func parseResponse(content string) (parsedResponse, error) {
	var parsed parsedResponse
	var haveCategory, haveConfidence, haveReasoning bool

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case !haveCategory && hasLabel(line, "CATEGORY"):
			parsed.Category = labelValue(line, "CATEGORY")
			haveCategory = true
		case !haveConfidence && hasLabel(line, "CONFIDENCE"):
			parsed.Confidence = parseConfidence(labelValue(line, "CONFIDENCE"))
			haveConfidence = true
		case !haveReasoning && hasLabel(line, "REASONING"):
			parsed.Reasoning = labelValue(line, "REASONING")
			haveReasoning = true
		}
	}

	if !haveCategory || parsed.Category == "" {
		return parsedResponse{}, fmt.Errorf("no CATEGORY line found in response")
	}

	return parsed, nil
}

func hasLabel(line, label string) bool {
	return strings.HasPrefix(strings.ToUpper(line), label+":")
}

func labelValue(line, label string) string {
	return strings.TrimSpace(line[len(label)+1:])
}

// parseConfidence recovers an integer from the model's confidence value,
// tolerating percent signs, decimals, and stray characters. Unparseable
// values come back as 0 and are clipped into the valid band later.
func parseConfidence(raw string) int {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "%")

	if v, err := strconv.Atoi(raw); err == nil {
		return v
	}

	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		// Some models report confidence as a 0-1 fraction.
		if f > 0 && f <= 1 {
			return int(f * 100)
		}
		return int(f)
	}

	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if v, err := strconv.Atoi(cleaned); err == nil {
		return v
	}

	return 0
}
