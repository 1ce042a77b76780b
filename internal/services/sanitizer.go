package services

import "strings"

// Storage bounds applied to every answer before persistence. These are a
// second line of defense behind the HTTP request-size limit: no single answer
// can grow storage without bound regardless of what the validator let through.
const (
	maxAnswerLen    = 10000
	maxAnswerNumber = 1000000
	maxAnswerElems  = 100
	maxElemLen      = 1000
	maxFileNameLen  = 255
	maxFileTypeLen  = 100
	defaultFileName = "unknown"
	defaultFileType = "unknown"
)

// SanitizeAnswers clips every answer to storage-safe bounds. The rules are
// driven by the runtime type of each value, not the originating field kind,
// so the function is total and safe to call on synthetic input. Sanitizing is
// idempotent and each field is handled independently.
func SanitizeAnswers(answers map[string]any) map[string]any {
	out := make(map[string]any, len(answers))
	for id, v := range answers {
		out[id] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return clipString(t, maxAnswerLen)
	case float64:
		return clampNumber(t)
	case float32:
		return clampNumber(float64(t))
	case int:
		return clampNumber(float64(t))
	case int64:
		return clampNumber(float64(t))
	case []any:
		return sanitizeArray(t)
	case map[string]any:
		return sanitizeFileRef(t)
	default:
		return v
	}
}

// clipString trims, truncates to limit runes, then trims again so a cut that
// lands on whitespace cannot leave a trailing space behind (which would break
// idempotency).
func clipString(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > limit {
		s = strings.TrimSpace(string(r[:limit]))
	}
	return s
}

func clampNumber(n float64) float64 {
	if n > maxAnswerNumber {
		return maxAnswerNumber
	}
	if n < -maxAnswerNumber {
		return -maxAnswerNumber
	}
	return n
}

func sanitizeArray(arr []any) []any {
	if len(arr) > maxAnswerElems {
		arr = arr[:maxAnswerElems]
	}
	out := make([]any, len(arr))
	for i, el := range arr {
		if s, ok := el.(string); ok {
			out[i] = clipString(s, maxElemLen)
			continue
		}
		out[i] = el
	}
	return out
}

// sanitizeFileRef rebuilds a file-reference object as a fixed three-key
// structure; anything else on the input object is dropped.
func sanitizeFileRef(m map[string]any) map[string]any {
	name := defaultFileName
	if s, ok := m["name"].(string); ok && strings.TrimSpace(s) != "" {
		name = clipString(s, maxFileNameLen)
	}
	size := float64(0)
	if n, ok := toNumber(m["size"]); ok && n > 0 {
		size = clampNumber(n)
	}
	typ := defaultFileType
	if s, ok := m["type"].(string); ok && strings.TrimSpace(s) != "" {
		typ = clipString(s, maxFileTypeLen)
	}
	return map[string]any{"name": name, "size": size, "type": typ}
}
