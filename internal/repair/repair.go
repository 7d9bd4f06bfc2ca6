// Package repair validates the JSON arrays a language model was asked to emit
// and applies a small, enumerated set of best-effort fixes for malformations
// the model is known to produce. It is a heuristic, not a JSON parser: each
// fix targets one observed failure pattern and is tested only against
// examples of that pattern.
package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"echoframe-go/internal/types"
)

// Reason classifies why a response was rejected.
type Reason string

const (
	ReasonMissingClosingBracket Reason = "missing_closing_bracket"
	ReasonParse                 Reason = "parse_error"
	ReasonNotArray              Reason = "not_an_array"
	ReasonMissingField          Reason = "missing_required_field"
)

// snippetRadius is how many characters around a parse error are kept for diagnostics.
const snippetRadius = 50

// ValidationError is the definitive failure for one chunk's response.
type ValidationError struct {
	Reason  Reason
	Offset  int    // parse_error: byte offset in the repaired text
	Snippet string // parse_error: text around Offset
	Index   int    // missing_required_field: element index
	Detail  string
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonParse:
		return fmt.Sprintf("%s at offset %d: %s (near %q)", e.Reason, e.Offset, e.Detail, e.Snippet)
	case ReasonMissingField:
		return fmt.Sprintf("%s in element %d: %s", e.Reason, e.Index, e.Detail)
	default:
		if e.Detail == "" {
			return string(e.Reason)
		}
		return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
	}
}

// IsReason reports whether err is a ValidationError with the given reason.
func IsReason(err error, r Reason) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Reason == r
}

// Pattern is one known missing-separator failure: the model dropped the comma
// between a quoted string field and the field that follows it.
type Pattern struct {
	Name string
	re   *regexp.Regexp
}

func fieldPair(prev, next string) Pattern {
	return Pattern{
		Name: prev + "->" + next,
		re:   regexp.MustCompile(`("` + prev + `":\s*"[^"]+")\s+("` + next + `":)`),
	}
}

// KnownPatterns are the separator repairs applied by Repair.
var KnownPatterns = []Pattern{
	fieldPair("start_time", "end_time"),
	fieldPair("end_time", "description"),
}

// StripFences removes markdown code fence markers the model was told not to emit.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// FixSeparators applies every KnownPatterns fix.
func FixSeparators(s string) string {
	for _, p := range KnownPatterns {
		s = p.re.ReplaceAllString(s, "$1, $2")
	}
	return s
}

// TruncateToArrayEnd drops anything after the last closing bracket. It fails
// when no closing bracket exists.
func TruncateToArrayEnd(s string) (string, bool, error) {
	if strings.HasSuffix(s, "]") {
		return s, false, nil
	}
	last := strings.LastIndex(s, "]")
	if last == -1 {
		return "", false, &ValidationError{Reason: ReasonMissingClosingBracket, Detail: "no closing bracket in response"}
	}
	return s[:last+1], true, nil
}

// Repair runs the text-level steps in order: fence strip, separator fixes,
// truncation to the last closing bracket.
func Repair(raw string) (string, error) {
	s := StripFences(raw)
	s = FixSeparators(s)
	s, _, err := TruncateToArrayEnd(s)
	return s, err
}

// ParseArray repairs raw, parses it and checks every element carries all keys.
// Any failing element rejects the whole response.
func ParseArray(raw string, keys ...string) ([]map[string]any, error) {
	s := FixSeparators(StripFences(raw))

	// A complete JSON value of another shape is reported as such rather than
	// being cut at some bracket inside it.
	if !strings.HasSuffix(s, "]") && json.Valid([]byte(s)) {
		var v any
		_ = json.Unmarshal([]byte(s), &v)
		return nil, &ValidationError{Reason: ReasonNotArray, Detail: fmt.Sprintf("top level is %s", kind(v))}
	}

	s, _, err := TruncateToArrayEnd(s)
	if err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, parseError(s, err)
	}

	items, ok := v.([]any)
	if !ok {
		return nil, &ValidationError{Reason: ReasonNotArray, Detail: fmt.Sprintf("top level is %s", kind(v))}
	}

	out := make([]map[string]any, 0, len(items))
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			return nil, &ValidationError{Reason: ReasonMissingField, Index: i, Detail: fmt.Sprintf("element is %s, not an object", kind(it))}
		}
		for _, k := range keys {
			if _, ok := obj[k]; !ok {
				return nil, &ValidationError{Reason: ReasonMissingField, Index: i, Detail: "missing " + k}
			}
		}
		out = append(out, obj)
	}
	return out, nil
}

func kind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return "null"
	}
}

func parseError(s string, err error) *ValidationError {
	offset := -1
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syn):
		offset = int(syn.Offset)
	case errors.As(err, &typ):
		offset = int(typ.Offset)
	}
	ve := &ValidationError{Reason: ReasonParse, Offset: offset, Detail: err.Error()}
	if offset >= 0 {
		start := max(0, offset-snippetRadius)
		end := min(len(s), offset+snippetRadius)
		ve.Snippet = s[start:end]
	}
	return ve
}

// ParseVisualDescriptions is ParseArray for the visual description schema.
func ParseVisualDescriptions(raw string) ([]types.VisualDescriptionSegment, error) {
	items, err := ParseArray(raw, "start_time", "end_time", "description")
	if err != nil {
		return nil, err
	}
	out := make([]types.VisualDescriptionSegment, len(items))
	for i, it := range items {
		out[i] = types.VisualDescriptionSegment{
			StartTime:   stringify(it["start_time"]),
			EndTime:     stringify(it["end_time"]),
			Description: stringify(it["description"]),
		}
	}
	return out, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
