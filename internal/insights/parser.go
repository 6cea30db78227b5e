package insights

import (
	"encoding/json"
	"strings"

	"github.com/wellnessgrid/backend/internal/models"
)

// DefaultRecommendation is the single recommendation in the fallback payload
const DefaultRecommendation = "Keep tracking your health data consistently to unlock personalized insights."

// maxRepairCuts bounds how many trailing members Repair may drop
const maxRepairCuts = 8

var payloadKeys = []string{"trends", "concerns", "recommendations", "achievements"}

// DefaultPayload is returned whenever a response cannot be used
func DefaultPayload() models.InsightPayload {
	return models.InsightPayload{
		Trends:   []models.InsightItem{},
		Concerns: []models.InsightItem{},
		Recommendations: []models.InsightItem{{
			Title:       "Keep tracking",
			Description: DefaultRecommendation,
			Severity:    "info",
		}},
		Achievements: []models.InsightItem{},
	}
}

// Parse extracts the insight payload from raw model output. The boolean is
// false when no candidate parsed, in which case DefaultPayload is returned.
func Parse(response string) (models.InsightPayload, bool) {
	for _, candidate := range Candidates(response) {
		if payload, ok := decode(candidate); ok {
			return payload, true
		}
		if payload, ok := decode(Repair(candidate)); ok {
			return payload, true
		}
		// drop incomplete trailing members one at a time
		cut := candidate
		for i := 0; i < maxRepairCuts; i++ {
			idx := strings.LastIndex(cut, ",")
			if idx <= 0 {
				break
			}
			cut = cut[:idx]
			if payload, ok := decode(Repair(cut)); ok {
				return payload, true
			}
		}
	}
	return DefaultPayload(), false
}

// Candidates lists the substrings worth trying as JSON, in priority order:
// a ```json fence, a bare ``` fence, the first brace-balanced object, and
// finally the whole response. An unterminated fence or object runs to the
// end of the response so truncated output can still be repaired.
func Candidates(response string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	if block, ok := fenced(response, "```json"); ok {
		add(block)
	}
	if block, ok := fenced(response, "```"); ok {
		add(strings.TrimPrefix(strings.TrimSpace(block), "json"))
	}
	if block, ok := balancedObject(response); ok {
		add(block)
	}
	add(response)

	return out
}

func fenced(s, marker string) (string, bool) {
	start := strings.Index(s, marker)
	if start == -1 {
		return "", false
	}
	rest := s[start+len(marker):]
	if end := strings.Index(rest, "```"); end != -1 {
		return rest[:end], true
	}
	return rest, true
}

// balancedObject returns the first {...} block, honoring strings and escapes
func balancedObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return s[start:], true
}

// Repair closes an unterminated string and any open objects or arrays, and
// removes a dangling comma or colon at the cut point.
func Repair(s string) string {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		if escaped {
			b.WriteByte('\\')
		}
		b.WriteByte('"')
	}

	out := strings.TrimRight(b.String(), " \t\r\n")
	out = strings.TrimSuffix(out, ",")
	if strings.HasSuffix(out, ":") {
		out += "null"
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			out += "}"
		} else {
			out += "]"
		}
	}
	return out
}

func decode(candidate string) (models.InsightPayload, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return models.InsightPayload{}, false
	}

	found := false
	for _, k := range payloadKeys {
		if _, ok := raw[k]; ok {
			found = true
			break
		}
	}
	if !found {
		return models.InsightPayload{}, false
	}

	payload := models.InsightPayload{
		Trends:          decodeItems(raw["trends"]),
		Concerns:        decodeItems(raw["concerns"]),
		Recommendations: decodeItems(raw["recommendations"]),
		Achievements:    decodeItems(raw["achievements"]),
	}
	return payload, true
}

// decodeItems accepts a list or a single item and skips malformed members
func decodeItems(raw json.RawMessage) []models.InsightItem {
	items := []models.InsightItem{}
	if len(raw) == 0 || string(raw) == "null" {
		return items
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		list = []json.RawMessage{raw}
	}

	for _, r := range list {
		var item models.InsightItem
		if err := json.Unmarshal(r, &item); err != nil {
			continue
		}
		if item.Title == "" && item.Description == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}
