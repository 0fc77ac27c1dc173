package nlu

import (
	"encoding/json"
	"strings"
)

// ExtractJSON finds the first well-formed looking JSON object in free-form
// model output: greedy from the first '{' to the last '}'. Models often wrap
// JSON in prose or markdown fences, so this recovers the object without
// caring about the wrapping.
func ExtractJSON(content string) (string, bool) {
	start := strings.Index(content, "{")
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(content, "}")
	if end < start {
		return "", false
	}
	return content[start : end+1], true
}

// ParseEntities decodes an entity bag out of raw model output. It never
// fails: unparseable output yields an empty bag.
func ParseEntities(content string) map[string]Value {
	jsonStr, ok := ExtractJSON(content)
	if !ok {
		return map[string]Value{}
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return map[string]Value{}
	}
	entities := make(map[string]Value, len(raw))
	for k, v := range raw {
		entities[k] = FromAny(v)
	}
	return entities
}
