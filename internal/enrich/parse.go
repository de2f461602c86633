package enrich

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	errNoObject = errors.New("no JSON object in response")
	errNoArray  = errors.New("no JSON array in response")
)

// stripFences removes markdown code fence markers, keeping their content.
func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	return strings.ReplaceAll(text, "```", "")
}

// span returns text from the first open to the last close delimiter.
func span(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ExtractObject finds the JSON object in model output that may be wrapped in
// prose or code fences.
func ExtractObject(text string) (string, bool) {
	return span(stripFences(text), '{', '}')
}

func decodeObject(text string) (map[string]any, error) {
	candidate, ok := ExtractObject(text)
	if !ok {
		return nil, errNoObject
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil, fmt.Errorf("parse JSON object: %w", err)
	}
	return raw, nil
}

func decodeArray(text string) ([]map[string]any, error) {
	candidate, ok := span(stripFences(text), '[', ']')
	if !ok {
		return nil, errNoArray
	}
	var raw []map[string]any
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil, fmt.Errorf("parse JSON array: %w", err)
	}
	return raw, nil
}

func stringField(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// enumField returns v untouched; enumeration values must match exactly.
func enumField(v any) string {
	s, _ := v.(string)
	return s
}

// stringList accepts only arrays; string members are kept as-is.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// yearField accepts a number or a numeric string, as models return both.
func yearField(v any) *int {
	var year int
	switch value := v.(type) {
	case float64:
		if value != math.Trunc(value) {
			return nil
		}
		year = int(value)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil
		}
		year = parsed
	default:
		return nil
	}
	if year <= 0 {
		return nil
	}
	return &year
}
