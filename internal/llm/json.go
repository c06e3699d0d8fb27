package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSONResponse extracts and unmarshals a JSON object or array from an
// LLM response, tolerating markdown code fences and surrounding prose.
func ParseJSONResponse(response string, target any) error {
	cleaned := strings.TrimSpace(response)

	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx != -1 {
			cleaned = cleaned[idx+1:]
		}
		if idx := strings.LastIndex(cleaned, "```"); idx != -1 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	// Models sometimes wrap the payload in explanatory text. Cut down to the
	// outermost JSON value.
	start := strings.IndexAny(cleaned, "{[")
	if start == -1 {
		return fmt.Errorf("no JSON found in response")
	}
	var end int
	if cleaned[start] == '{' {
		end = strings.LastIndex(cleaned, "}")
	} else {
		end = strings.LastIndex(cleaned, "]")
	}
	if end <= start {
		return fmt.Errorf("malformed JSON in response")
	}

	if err := json.Unmarshal([]byte(cleaned[start:end+1]), target); err != nil {
		return fmt.Errorf("parsing JSON response: %w", err)
	}
	return nil
}
