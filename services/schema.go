package services

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"g7kaih_go/models"
)

// FieldType enumerates the supported dynamic form field types.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldTime        FieldType = "time"
	FieldImage       FieldType = "image"
	FieldTextImage   FieldType = "text_image"
	FieldMultiselect FieldType = "multiselect"
)

// Field is a normalized, typed field definition derived from the raw
// admin-authored schema. Normalization always produces a fresh list; the
// stored schema is never mutated.
type Field struct {
	// ID is the stored CategoryField row id; zero for fields normalized from
	// raw schema input that never touched the database.
	ID       uint                   `json:"fieldid,omitempty"`
	Key      string                 `json:"key"`
	Label    string                 `json:"label"`
	Type     FieldType              `json:"type"`
	Required bool                   `json:"required"`
	Order    int                    `json:"order"`
	Config   map[string]interface{} `json:"config,omitempty"`
}

// CategorySchema is the normalized form schema for one category.
type CategorySchema struct {
	CategoryID   uint    `json:"categoryid"`
	CategoryName string  `json:"categoryname"`
	Fields       []Field `json:"fields"`
}

// NormalizeFields turns heterogeneous, possibly malformed schema input into an
// ordered list of typed fields. It never fails: a schema too broken to read
// degrades to an empty list so an already-working form keeps rendering.
func NormalizeFields(raw interface{}) []Field {
	items := coerceToList(raw)
	fields := make([]Field, 0, len(items))

	for i, item := range items {
		record, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		key := strings.TrimSpace(stringValue(record["key"]))
		if key == "" {
			// malformed entries are skipped, not fatal
			continue
		}

		label := strings.TrimSpace(stringValue(record["label"]))
		if label == "" {
			label = key
		}

		f := Field{
			Key:      key,
			Label:    label,
			Type:     normalizeType(record["type"]),
			Required: truthy(record["required"]),
			Order:    orderOrDefault(record["order"], i),
		}
		if cfg, ok := record["config"].(map[string]interface{}); ok {
			f.Config = cfg
		}
		fields = append(fields, f)
	}

	sortFieldsByOrder(fields)

	return fields
}

// NormalizeCategoryField maps a stored CategoryField row through the same
// coercion rules as raw schema input.
func NormalizeCategoryField(cf models.CategoryField, position int) Field {
	record := map[string]interface{}{
		"key":      cf.FieldKey,
		"label":    cf.Label,
		"type":     cf.Type,
		"required": cf.Required,
		"order":    float64(cf.OrderIndex),
	}
	if !cf.Config.IsNull() {
		var cfg map[string]interface{}
		if err := json.Unmarshal(cf.Config, &cfg); err == nil {
			record["config"] = cfg
		}
	}

	fields := NormalizeFields([]interface{}{record})
	if len(fields) == 0 {
		// a row with an empty key yields a placeholder that callers drop
		return Field{Type: FieldText, Order: position}
	}
	f := fields[0]
	f.ID = cf.ID
	return f
}

// sortFieldsByOrder orders fields ascending by resolved order, ties keeping
// their original relative position.
func sortFieldsByOrder(fields []Field) {
	sort.SliceStable(fields, func(a, b int) bool {
		return fields[a].Order < fields[b].Order
	})
}

// ResolveOptions extracts selectable options for a multiselect field. Any
// unusable config shape yields zero options rather than an error.
func ResolveOptions(f Field) []string {
	if f.Config == nil {
		return []string{}
	}

	switch opts := f.Config["options"].(type) {
	case []interface{}:
		out := make([]string, 0, len(opts))
		for _, o := range opts {
			out = append(out, stringValue(o))
		}
		return out
	case []string:
		out := make([]string, len(opts))
		copy(out, opts)
		return out
	case string:
		return splitOptions(opts)
	default:
		return []string{}
	}
}

// coerceToList accepts a native list, a JSON-encoded string, a keyed map or a
// wrapper object with a "data" list and yields a flat element list.
func coerceToList(raw interface{}) []interface{} {
	switch v := raw.(type) {
	case nil:
		return nil
	case []interface{}:
		return v
	case string:
		var parsed interface{}
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return nil
		}
		switch p := parsed.(type) {
		case []interface{}:
			return p
		case map[string]interface{}:
			return mapValues(p)
		default:
			return nil
		}
	case map[string]interface{}:
		if data, ok := v["data"].([]interface{}); ok {
			return data
		}
		values := mapValues(v)
		for _, item := range values {
			if _, ok := item.(map[string]interface{}); !ok {
				// only treat the object as a field collection when every
				// value looks like a record
				return nil
			}
		}
		return values
	default:
		return nil
	}
}

// mapValues returns map values in key order so the result is deterministic.
func mapValues(m map[string]interface{}) []interface{} {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]interface{}, 0, len(m))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// normalizeType whitelists the five known field types, coercing anything
// else (absent, padded, mixed-case, unknown) to text.
func normalizeType(raw interface{}) FieldType {
	t := FieldType(strings.ToLower(strings.TrimSpace(stringValue(raw))))
	switch t {
	case FieldText, FieldTime, FieldImage, FieldTextImage, FieldMultiselect:
		return t
	default:
		return FieldText
	}
}

func orderOrDefault(raw interface{}, position int) int {
	switch n := raw.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return position
		}
		return int(n)
	case int:
		return n
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
		return position
	default:
		return position
	}
}

func truthy(raw interface{}) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "1" || s == "yes"
	case float64:
		return v != 0
	default:
		return false
	}
}

func stringValue(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// avoid the %v "1e+06" form for large whole numbers
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// splitOptions splits a delimited option string on commas and newlines,
// trimming whitespace and dropping empty pieces.
func splitOptions(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
