// Package normalize shapes outgoing entities so that records served by the
// durable store and by the in-process mirror look the same to clients.
//
// Every entity leaves the process as a JSON object in which
//
//	id        is always present and always a string,
//	legacyId  is present whenever it can be derived,
//	persistentId is not repeated (it is the id when it exists).
//
// The transform works on a copy and is idempotent.
package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Document is a normalised entity ready for encoding.
type Document map[string]any

// Entity normalises a single value.  v may be a struct, a pointer to one or
// an already decoded map.
func Entity(v any) (Document, error) {
	m, err := toMap(v)
	if err != nil {
		return nil, err
	}
	return Map(m), nil
}

// List normalises each element of a slice-like value.  A nil input yields an
// empty list so clients always receive an array.
func List[T any](items []T) ([]Document, error) {
	out := make([]Document, 0, len(items))
	for _, it := range items {
		d, err := Entity(it)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Map normalises an already decoded object.  The input map is not modified.
func Map(in map[string]any) Document {
	out := make(Document, len(in)+1)
	for k, v := range in {
		out[k] = v
	}

	persistent := stringValue(out["persistentId"])
	delete(out, "persistentId")

	legacy, hasLegacy := legacyValue(out["legacyId"])
	existing := idString(out["id"])

	switch {
	case persistent != "":
		out["id"] = persistent
	case existing != "":
		out["id"] = existing
	case hasLegacy:
		out["id"] = strconv.FormatInt(legacy, 10)
	default:
		delete(out, "id")
	}

	if !hasLegacy {
		if n, ok := numericID(existing); ok {
			legacy, hasLegacy = n, true
		}
	}
	if hasLegacy {
		out["legacyId"] = legacy
	} else {
		delete(out, "legacyId")
	}
	return out
}

func toMap(v any) (map[string]any, error) {
	switch t := v.(type) {
	case Document:
		return t, nil
	case map[string]any:
		return t, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "normalize: encode")
	}
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "normalize: decode")
	}
	if m == nil {
		return nil, errors.New("normalize: value is not an object")
	}
	return m, nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// idString renders an id of any scalar type as a string.
func idString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

func legacyValue(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, t > 0
	case int:
		return int64(t), t > 0
	case float64:
		n := int64(t)
		return n, n > 0 && float64(n) == t
	case json.Number:
		n, err := t.Int64()
		return n, err == nil && n > 0
	case string:
		return numericID(t)
	}
	return 0, false
}

// numericID accepts the decimal form a legacy id takes when it was used as
// the id of a mirror record.
func numericID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
