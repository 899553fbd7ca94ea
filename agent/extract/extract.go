// Package extract parses the loosely formatted JSON that extraction prompts
// return.
package extract

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

const minUtteranceRunes = 3

// Object slices raw from the first '{' to the last '}' and parses it.
// ok is false when no valid JSON object is found.
func Object(raw string) (gjson.Result, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return gjson.Result{}, false
	}
	candidate := raw[start : end+1]
	if !gjson.Valid(candidate) {
		return gjson.Result{}, false
	}
	obj := gjson.Parse(candidate)
	if !obj.IsObject() {
		return gjson.Result{}, false
	}
	return obj, true
}

// Parse is Object for extraction output. A missing or keyless object is
// contract.ErrExtraction.
func Parse(raw string) (gjson.Result, error) {
	obj, ok := Object(raw)
	if !ok {
		return gjson.Result{}, fmt.Errorf("%w: no json object in output", contractx.ErrExtraction)
	}
	if Empty(obj) {
		return gjson.Result{}, fmt.Errorf("%w: empty object", contractx.ErrExtraction)
	}
	return obj, nil
}

// Empty reports whether obj has no keys.
func Empty(obj gjson.Result) bool {
	empty := true
	obj.ForEach(func(_, _ gjson.Result) bool {
		empty = false
		return false
	})
	return empty
}

// String returns the first non-blank scalar found under keys. Keys may be
// gjson paths such as "location.city".
func String(obj gjson.Result, keys ...string) string {
	for _, key := range keys {
		v := obj.Get(key)
		if !v.Exists() || v.IsObject() || v.IsArray() || v.Type == gjson.Null {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}

// Strings accepts either a single string or an array of strings under the
// first key that is present. Blank entries are dropped.
func Strings(obj gjson.Result, keys ...string) []string {
	for _, key := range keys {
		v := obj.Get(key)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		var out []string
		if v.IsArray() {
			for _, item := range v.Array() {
				if item.IsObject() || item.IsArray() {
					continue
				}
				if s := strings.TrimSpace(item.String()); s != "" {
					out = append(out, s)
				}
			}
		} else if s := strings.TrimSpace(v.String()); s != "" && !v.IsObject() {
			out = append(out, s)
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// Float returns the first numeric value under keys. Numeric strings count.
func Float(obj gjson.Result, keys ...string) *float64 {
	for _, key := range keys {
		v := obj.Get(key)
		switch v.Type {
		case gjson.Number:
			f := v.Float()
			return &f
		case gjson.String:
			if n := gjson.Parse(strings.TrimSpace(v.Str)); n.Type == gjson.Number {
				f := n.Float()
				return &f
			}
		}
	}
	return nil
}

// ShouldSkip filters utterances not worth an extraction call: anything
// shorter than three characters and single all-uppercase words, which are
// usually routing labels echoed back.
func ShouldSkip(text string) bool {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minUtteranceRunes {
		return true
	}
	if strings.ContainsFunc(text, unicode.IsSpace) {
		return false
	}
	hasLetter := false
	for _, r := range text {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
