// Package quiz holds the pure quiz domain logic: normalizing uploaded
// question JSON, the wall-clock countdown, and answer scoring. It performs
// no I/O so every rule is unit-testable in isolation.
package quiz

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/quizroomhq/quizroom-backend/internal/model"
)

// NormalizeError reports which question failed validation and why.
type NormalizeError struct {
	Index  int
	Reason string
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("question at index %d: %s", e.Index, e.Reason)
}

// textAliases are the accepted question-text field names, in priority order.
var textAliases = [...]string{"text", "question", "q"}

// letterOrder is the preferred option ordering for lettered option maps.
var letterOrder = [...]string{"a", "b", "c", "d"}

// Normalize parses arbitrary uploaded quiz JSON into the canonical question
// list, preserving input order. Supported shapes per question:
//   - text under "text", "question" or "q"
//   - options as a list, a lettered map (a/b/c/d, fixed order) or an
//     arbitrary-key map (values sorted by key)
//   - answer as an index, a letter, a literal option value or a digit string
//
// The first invalid question aborts with a NormalizeError naming its index.
func Normalize(raw json.RawMessage) ([]model.Question, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("questions JSON must be a list of question objects")
	}

	out := make([]model.Question, 0, len(items))
	for idx, item := range items {
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, &NormalizeError{Index: idx, Reason: "not an object"}
		}

		text := resolveText(obj)
		if text == "" {
			return nil, &NormalizeError{Index: idx, Reason: "missing text"}
		}

		options, err := resolveOptions(obj)
		if err != nil {
			return nil, &NormalizeError{Index: idx, Reason: err.Error()}
		}

		answer, err := resolveAnswer(obj, options)
		if err != nil {
			return nil, &NormalizeError{Index: idx, Reason: err.Error()}
		}

		if answer < 0 || answer >= len(options) {
			return nil, &NormalizeError{Index: idx, Reason: fmt.Sprintf("answer index %d out of range", answer)}
		}

		out = append(out, model.Question{Text: text, Options: options, Answer: answer})
	}

	return out, nil
}

func resolveText(obj map[string]any) string {
	for _, key := range textAliases {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func resolveOptions(obj map[string]any) ([]string, error) {
	raw, ok := obj["options"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("missing options")
	}

	switch v := raw.(type) {
	case []any:
		options := make([]string, len(v))
		for i, o := range v {
			options[i] = stringify(o)
		}
		return options, nil

	case map[string]any:
		// Prefer the fixed a,b,c,d order when any lettered keys exist;
		// otherwise take all values sorted by key.
		var options []string
		for _, k := range letterOrder {
			if o, ok := v[k]; ok {
				options = append(options, stringify(o))
			}
		}
		if options != nil {
			return options, nil
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			options = append(options, stringify(v[k]))
		}
		return options, nil

	default:
		return nil, fmt.Errorf("invalid options type")
	}
}

func resolveAnswer(obj map[string]any, options []string) (int, error) {
	raw, ok := obj["answer"]
	if !ok || raw == nil {
		return 0, fmt.Errorf("missing answer")
	}

	switch v := raw.(type) {
	case float64:
		// JSON numbers decode as float64; only integral values are indexes.
		if v != float64(int(v)) {
			return 0, fmt.Errorf("unknown answer format")
		}
		return int(v), nil

	case string:
		a := strings.ToLower(strings.TrimSpace(v))
		if len(a) == 1 && a[0] >= 'a' && a[0] <= 'z' {
			return int(a[0] - 'a'), nil
		}
		for i, opt := range options {
			if opt == v {
				return i, nil
			}
		}
		if n, err := strconv.Atoi(a); err == nil && !strings.HasPrefix(a, "-") {
			return n, nil
		}
		return 0, fmt.Errorf("unknown answer format")

	default:
		return 0, fmt.Errorf("missing answer")
	}
}

// stringify renders an option value. Uploads occasionally carry numeric
// options; everything becomes its JSON-ish string form.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprint(v)
}
