package cmr

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/clbanning/mxj/v2"
	"github.com/tidwall/gjson"
)

const (
	// mxj marks attributes with this prefix and element text with textKey.
	attrPrefix = "-"
	textKey    = "#text"
)

// decodeXML parses an XML document into a map. Attributes are merged into
// their element as plain keys and a single child stays a scalar or map rather
// than a one-element list. An empty body decodes to an empty map.
func decodeXML(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}

	m, err := mxj.NewMapXml(body)
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}

	merged, _ := mergeAttrs(map[string]any(m)).(map[string]any)
	if merged == nil {
		return map[string]any{}, nil
	}
	return merged, nil
}

func mergeAttrs(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		// Children first so an attribute never shadows an element of the same name.
		for k, child := range t {
			if !strings.HasPrefix(k, attrPrefix) {
				out[k] = mergeAttrs(child)
			}
		}
		for k, child := range t {
			if name, ok := strings.CutPrefix(k, attrPrefix); ok {
				if _, exists := out[name]; !exists {
					out[name] = child
				}
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = mergeAttrs(child)
		}
		return out
	default:
		return v
	}
}

// lookupPath walks a dotted path through nested maps.
func lookupPath(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, part := range strings.Split(path, ".") {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// stringValue renders a decoded XML leaf as text.
func stringValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case map[string]any:
		if text, ok := t[textKey]; ok {
			return stringValue(text)
		}
		return "", false
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// xmlErrors extracts CMR's errors element from a decoded XML body. It reports
// false when the body carries no errors element at all. The element is looked
// for at the root and inside a result envelope.
func xmlErrors(m map[string]any) ([]string, []FieldError, bool) {
	node, ok := m["errors"]
	if !ok {
		node, ok = lookupPath(m, "result.errors")
	}
	if !ok {
		return nil, nil, false
	}

	var (
		messages []string
		details  []FieldError
	)

	errs, _ := node.(map[string]any)
	var entries []any
	if errs != nil {
		entries = asList(errs["error"])
	} else if s, isText := stringValue(node); isText && strings.TrimSpace(s) != "" {
		entries = []any{s}
	}

	for _, entry := range entries {
		if s, isText := entry.(string); isText {
			messages = append(messages, strings.TrimSpace(s))
			continue
		}
		em, isMap := entry.(map[string]any)
		if !isMap {
			continue
		}
		if s, isText := stringValue(em); isText {
			messages = append(messages, strings.TrimSpace(s))
			continue
		}
		var fe FieldError
		for _, p := range asList(em["path"]) {
			if s, isText := stringValue(p); isText {
				fe.Path = append(fe.Path, s)
			}
		}
		if nested, isNested := em["errors"].(map[string]any); isNested {
			for _, msg := range asList(nested["error"]) {
				if s, isText := stringValue(msg); isText {
					fe.Errors = append(fe.Errors, strings.TrimSpace(s))
				}
			}
		}
		if len(fe.Path) > 0 || len(fe.Errors) > 0 {
			details = append(details, fe)
		}
	}

	return messages, details, true
}

// jsonErrors extracts the errors array of a CMR JSON error body. Entries are
// plain strings or objects with a path and nested errors.
func jsonErrors(body []byte) ([]string, []FieldError, error) {
	if !gjson.ValidBytes(body) {
		return nil, nil, fmt.Errorf("error body is not valid JSON")
	}

	errs := gjson.GetBytes(body, "errors")
	if !errs.IsArray() {
		return nil, nil, fmt.Errorf("error body has no errors array")
	}

	var (
		messages []string
		details  []FieldError
	)
	errs.ForEach(func(_, entry gjson.Result) bool {
		if !entry.IsObject() {
			messages = append(messages, entry.String())
			return true
		}
		var fe FieldError
		entry.Get("path").ForEach(func(_, p gjson.Result) bool {
			fe.Path = append(fe.Path, p.String())
			return true
		})
		entry.Get("errors").ForEach(func(_, msg gjson.Result) bool {
			fe.Errors = append(fe.Errors, msg.String())
			return true
		})
		details = append(details, fe)
		return true
	})

	return messages, details, nil
}

// decodeErrorBody decodes a CMR error body in the encoding format asked for.
func decodeErrorBody(format Format, body []byte) ([]string, []FieldError, error) {
	if format == FormatUMMJSON {
		return jsonErrors(body)
	}

	m, err := decodeXML(body)
	if err != nil {
		return nil, nil, err
	}
	messages, details, ok := xmlErrors(m)
	if !ok {
		return nil, nil, fmt.Errorf("error body has no errors element")
	}
	return messages, details, nil
}

// flatten joins messages and details into one list of strings.
func flatten(messages []string, details []FieldError) []string {
	v := ValidationError{Messages: messages, Details: details}
	return v.AllMessages()
}

// snippet trims a raw body to something reasonable for an error message.
func snippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
