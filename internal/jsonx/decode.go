// Package jsonx recovers structured data from model output that was supposed
// to be strict JSON but often is not. All four evaluation stages share this
// single decode path so their fallback behavior cannot drift apart.
package jsonx

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Unmarshal attempts a layered decode of raw into v:
//  1. direct JSON parse
//  2. repaired JSON parse (trailing commas, single quotes, truncation)
//  3. the first fenced code block containing JSON
//  4. the first brace-balanced object found in the text
//
// It returns the error of the last attempted layer when every layer fails.
func Unmarshal(raw string, v any) error {
	raw = strings.TrimSpace(raw)

	err := json.Unmarshal([]byte(raw), v)
	if err == nil {
		return nil
	}

	if repaired, rerr := jsonrepair.JSONRepair(raw); rerr == nil {
		if json.Unmarshal([]byte(repaired), v) == nil {
			return nil
		}
	}

	if block, ok := extractFencedBlock(raw); ok {
		if json.Unmarshal([]byte(block), v) == nil {
			return nil
		}
		if repaired, rerr := jsonrepair.JSONRepair(block); rerr == nil {
			if json.Unmarshal([]byte(repaired), v) == nil {
				return nil
			}
		}
	}

	if obj, ok := extractBalancedObject(raw); ok {
		if jerr := json.Unmarshal([]byte(obj), v); jerr == nil {
			return nil
		} else {
			err = jerr
		}
		if repaired, rerr := jsonrepair.JSONRepair(obj); rerr == nil {
			if json.Unmarshal([]byte(repaired), v) == nil {
				return nil
			}
		}
	}

	return err
}

// Decode unmarshals raw into T, returning fallback() when every decode layer
// fails. Extraction failures never surface as errors to the caller.
func Decode[T any](raw string, fallback func() T) T {
	var v T
	if err := Unmarshal(raw, &v); err != nil {
		return fallback()
	}
	return v
}

// extractFencedBlock returns the contents of the first ``` block.
func extractFencedBlock(raw string) (string, bool) {
	m := fencedBlockRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// extractBalancedObject scans for the first top-level {...} span, tracking
// string literals and escapes so braces inside quotes do not confuse the
// balance count.
func extractBalancedObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}
