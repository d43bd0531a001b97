package service

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/iliyamo/hotel-backoffice/internal/model"
)

// OrderPatch is a partial order update.  A nil field is left unchanged.
type OrderPatch struct {
	Status     *model.Status
	AssignedTo *string
	HandledBy  *string
	Items      *[]model.OrderItem
}

// Empty reports whether the patch changes nothing.
func (p OrderPatch) Empty() bool {
	return p.Status == nil && p.AssignedTo == nil && p.HandledBy == nil && p.Items == nil
}

// immutableOrderFields may not appear in an update body.
var immutableOrderFields = map[string]bool{
	"id":            true,
	"persistentId":  true,
	"legacyId":      true,
	"orderType":     true,
	"roomNumber":    true,
	"customerId":    true,
	"totalAmount":   true,
	"requestedTime": true,
	"completedAt":   true,
	"updatedAt":     true,
}

// DecodeOrderPatch parses an update body.  Immutable fields are rejected
// rather than ignored, as are fields the order does not have.  Fields that
// cannot be patched but only describe the request (serviceType,
// description, priority) are rejected too.
func DecodeOrderPatch(body []byte) (OrderPatch, error) {
	var p OrderPatch
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return p, &model.ValidationError{Field: "body", Reason: "must be a JSON object"}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		raw := fields[k]
		switch k {
		case "status":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return p, &model.ValidationError{Field: k, Reason: "must be a string"}
			}
			st := model.Status(strings.ToLower(strings.TrimSpace(s)))
			if st == model.StatusNext || !st.Valid() {
				return p, &model.ValidationError{Field: k, Reason: "unknown status " + s}
			}
			p.Status = &st
		case "assignedTo", "handledBy":
			s, err := DecodeRef(raw)
			if err != nil {
				return p, &model.ValidationError{Field: k, Reason: "must be a staff identifier"}
			}
			if k == "assignedTo" {
				p.AssignedTo = &s
			} else {
				p.HandledBy = &s
			}
		case "items":
			var items []model.OrderItem
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&items); err != nil {
				return p, &model.ValidationError{Field: k, Reason: "must be a list of items"}
			}
			if items == nil {
				items = []model.OrderItem{}
			}
			p.Items = &items
		default:
			if immutableOrderFields[k] {
				return p, &model.ValidationError{Field: k, Reason: "cannot be changed after creation"}
			}
			return p, &model.ValidationError{Field: k, Reason: "cannot be updated"}
		}
	}
	return p, nil
}

// DecodeRef accepts an identifier given as a JSON string or number.
func DecodeRef(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
