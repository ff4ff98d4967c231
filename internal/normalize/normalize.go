// Package normalize flattens the heterogeneous JSON shapes produced by the
// fetch stage (flat list, keyed container, date-indexed container) into a
// uniform record sequence, and re-nests filtered records back into the
// original shape.
package normalize

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// ProvenanceField stamps each flattened record with the date key it came
// from so it can be re-nested losslessly.
const ProvenanceField = "_source_date"

// DateIndexedKey is the synthetic container key reported for date-indexed
// documents.
const DateIndexedKey = "by_date"

// ErrUnsupportedShape is returned for documents with no recognizable record
// structure. This aborts the run before any classification happens.
var ErrUnsupportedShape = errors.New("normalize: unsupported document structure")

// Well-known container field names, in precedence order.
var containerKeys = []string{"items", "data", "rows", "trends", "results", "records"}

// Title-like field names, in precedence order after keyword and raw_data.
var titleFields = []string{"title", "Title", "name", "text", "headline", "topic"}

// ShapeKind captures how the on-disk JSON was structured.
type ShapeKind int

const (
	ShapeList ShapeKind = iota
	ShapeKeyed
	ShapeDateIndexed
)

// Shape records the container style a document was flattened from, so the
// filtered output can be written back in the same form.
type Shape struct {
	Kind ShapeKind
	Key  string
}

func (s Shape) String() string {
	switch s.Kind {
	case ShapeList:
		return "list"
	case ShapeDateIndexed:
		return "date-indexed"
	default:
		return fmt.Sprintf("keyed(%s)", s.Key)
	}
}

// Flatten extracts a uniform record sequence from a decoded JSON document.
//
// Detection precedence: top-level array; object with a well-known container
// key mapped to a list; date-indexed object (every value is a list or an
// object carrying an "items" list, and no key is a reserved container name);
// fallback to the first list-valued field, with a warning.
func Flatten(doc any, logger *zap.Logger) ([]any, Shape, error) {
	switch d := doc.(type) {
	case []any:
		return d, Shape{Kind: ShapeList}, nil

	case map[string]any:
		for _, key := range containerKeys {
			if list, ok := d[key].([]any); ok {
				return list, Shape{Kind: ShapeKeyed, Key: key}, nil
			}
		}

		if isDateIndexed(d) {
			return flattenDateIndexed(d), Shape{Kind: ShapeDateIndexed, Key: DateIndexedKey}, nil
		}

		for _, key := range sortedKeys(d) {
			if list, ok := d[key].([]any); ok {
				logger.Warn("using non-standard container key", zap.String("key", key))
				return list, Shape{Kind: ShapeKeyed, Key: key}, nil
			}
		}
		return nil, Shape{}, fmt.Errorf("%w: no list-valued field found", ErrUnsupportedShape)

	default:
		return nil, Shape{}, fmt.Errorf("%w: top-level %T", ErrUnsupportedShape, doc)
	}
}

// isDateIndexed reports whether every top-level value is a per-date
// container: either a plain item list or an object holding an "items" list.
// Key format is deliberately not validated as a calendar date.
func isDateIndexed(doc map[string]any) bool {
	if len(doc) == 0 {
		return false
	}
	for _, v := range doc {
		switch day := v.(type) {
		case []any:
		case map[string]any:
			if _, ok := day["items"].([]any); !ok {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func flattenDateIndexed(doc map[string]any) []any {
	var records []any
	for _, date := range sortedKeys(doc) {
		var items []any
		switch day := doc[date].(type) {
		case []any:
			items = day
		case map[string]any:
			items, _ = day["items"].([]any)
		}

		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				rec := CloneRecord(m)
				rec[ProvenanceField] = date
				records = append(records, rec)
			} else {
				records = append(records, map[string]any{
					"raw_data":      item,
					ProvenanceField: date,
				})
			}
		}
	}
	return records
}

// ExtractTitle returns the display title of a record and the field it was
// found in. Precedence: a non-empty "keyword" field; the first element of a
// "raw_data" array when it is a string; then the common title-like fields.
func ExtractTitle(record any) (title string, field string, ok bool) {
	m, isMap := record.(map[string]any)
	if !isMap {
		return "", "", false
	}

	if s := fieldString(m["keyword"]); s != "" {
		return s, "keyword", true
	}

	if raw, isList := m["raw_data"].([]any); isList && len(raw) > 0 {
		if s, isStr := raw[0].(string); isStr && s != "" {
			return s, "raw_data", true
		}
	}

	for _, key := range titleFields {
		if s := fieldString(m[key]); s != "" {
			return s, key, true
		}
	}
	return "", "", false
}

// fieldString renders a populated field value as text. Nil, empty strings,
// zero numbers and false are all treated as unpopulated.
func fieldString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == 0 {
			return ""
		}
		return fmt.Sprint(x)
	case bool:
		if !x {
			return ""
		}
		return "true"
	default:
		return fmt.Sprint(x)
	}
}

// Renest writes the kept record subset back into the document's original
// container shape.
func Renest(kept []any, shape Shape, original any, logger *zap.Logger) any {
	switch shape.Kind {
	case ShapeList:
		return kept

	case ShapeKeyed:
		doc, ok := original.(map[string]any)
		if !ok {
			return kept
		}
		out := CloneRecord(doc)
		out[shape.Key] = kept
		return out

	case ShapeDateIndexed:
		return renestDateIndexed(kept, original, logger)

	default:
		return kept
	}
}

func renestDateIndexed(kept []any, original any, logger *zap.Logger) any {
	doc, ok := original.(map[string]any)
	if !ok {
		return kept
	}

	// Rebuild the top-level object with every per-date container emptied.
	out := make(map[string]any, len(doc))
	for date, v := range doc {
		switch day := v.(type) {
		case map[string]any:
			emptied := CloneRecord(day)
			emptied["items"] = []any{}
			out[date] = emptied
		default:
			out[date] = []any{}
		}
	}

	for _, rec := range kept {
		m, isMap := rec.(map[string]any)
		if !isMap {
			continue
		}
		date, hasProv := m[ProvenanceField].(string)
		if !hasProv || date == "" {
			logger.Warn("dropping record without provenance tag")
			continue
		}

		switch day := out[date].(type) {
		case map[string]any:
			items, _ := day["items"].([]any)
			day["items"] = append(items, rec)
		case []any:
			out[date] = append(day, rec)
		default:
			// Provenance key vanished from the original document.
			out[date] = map[string]any{
				"date":  date,
				"items": []any{rec},
			}
		}
	}
	return out
}

// CloneRecord returns a shallow copy of a record map.
func CloneRecord(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
