package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/desertthunder/soundpost/internal/shared"
)

// Store is a document database.
type Store interface {
	// Add creates a document with a generated id and returns the id.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	// Set creates or replaces the document with the given id.
	Set(ctx context.Context, collection, id string, data map[string]any) error
	// Get returns the document, or nil without error when it does not exist.
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Query returns the documents matching q.
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// Update applies every field update atomically. Missing documents yield [shared.ErrNotFound].
	Update(ctx context.Context, collection, id string, updates ...FieldUpdate) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

// Document is a stored document. Timestamps in Data are ISO-8601 strings.
type Document struct {
	ID   string
	Data map[string]any
}

// Decode converts the document data into v through its JSON representation, adding the id under "id".
func (d *Document) Decode(v any) error {
	data := make(map[string]any, len(d.Data)+1)
	for k, val := range d.Data {
		data[k] = val
	}
	data["id"] = d.ID

	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", d.ID, err)
	}
	return nil
}

// Where is an equality filter on a top-level field.
type Where struct {
	Field string
	Value any
}

// Query filters, orders and limits a collection scan. Zero Limit means no limit.
type Query struct {
	Where   []Where
	OrderBy string
	Desc    bool
	Limit   int
}

// Op is a field update operation.
type Op int

const (
	OpSet Op = iota
	OpIncrement
	OpArrayUnion
	OpArrayRemove
)

func (o Op) String() string {
	switch o {
	case OpSet:
		return "set"
	case OpIncrement:
		return "increment"
	case OpArrayUnion:
		return "arrayUnion"
	case OpArrayRemove:
		return "arrayRemove"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// FieldUpdate is one change to a top-level field.
type FieldUpdate struct {
	Field  string
	Op     Op
	Value  any
	Values []any
}

// Set replaces a field's value.
func Set(field string, value any) FieldUpdate {
	return FieldUpdate{Field: field, Op: OpSet, Value: value}
}

// Increment adds n to a numeric field, treating a missing field as zero.
func Increment(field string, n int) FieldUpdate {
	return FieldUpdate{Field: field, Op: OpIncrement, Value: n}
}

// ArrayUnion appends each value not already present in the array field.
func ArrayUnion(field string, values ...any) FieldUpdate {
	return FieldUpdate{Field: field, Op: OpArrayUnion, Values: values}
}

// ArrayRemove removes every element equal to one of values from the array field.
func ArrayRemove(field string, values ...any) FieldUpdate {
	return FieldUpdate{Field: field, Op: OpArrayRemove, Values: values}
}

type serverTimestamp struct{}

// ServerTimestamp is a placeholder value replaced with the backend's current time on write.
var ServerTimestamp any = serverTimestamp{}

// ToMap converts v into a document map through its JSON representation.
//
// Keys listed in omit are dropped, typically "id" and computed fields.
func ToMap(v any, omit ...string) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	for _, k := range omit {
		delete(m, k)
	}
	return m, nil
}

// resolveTimestamps replaces ServerTimestamp placeholders in data with now.
func resolveTimestamps(data map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if v == ServerTimestamp {
			out[k] = shared.Timestamp(now)
			continue
		}
		out[k] = v
	}
	return out
}

// applyUpdates mutates data with each update in order.
func applyUpdates(data map[string]any, now time.Time, updates []FieldUpdate) error {
	for _, u := range updates {
		switch u.Op {
		case OpSet:
			if u.Value == ServerTimestamp {
				data[u.Field] = shared.Timestamp(now)
			} else {
				v, err := normalizeValue(u.Value)
				if err != nil {
					return err
				}
				data[u.Field] = v
			}
		case OpIncrement:
			current, err := toFloat(data[u.Field])
			if err != nil {
				return fmt.Errorf("%w: field %s: %v", shared.ErrInvalidArgument, u.Field, err)
			}
			delta, err := toFloat(u.Value)
			if err != nil {
				return fmt.Errorf("%w: increment %s: %v", shared.ErrInvalidArgument, u.Field, err)
			}
			data[u.Field] = current + delta
		case OpArrayUnion, OpArrayRemove:
			arr, err := toArray(data[u.Field])
			if err != nil {
				return fmt.Errorf("%w: field %s: %v", shared.ErrInvalidArgument, u.Field, err)
			}
			for _, raw := range u.Values {
				v, err := normalizeValue(raw)
				if err != nil {
					return err
				}
				if u.Op == OpArrayUnion {
					if !containsValue(arr, v) {
						arr = append(arr, v)
					}
					continue
				}
				kept := arr[:0]
				for _, el := range arr {
					if !reflect.DeepEqual(el, v) {
						kept = append(kept, el)
					}
				}
				arr = kept
			}
			data[u.Field] = arr
		default:
			return fmt.Errorf("%w: unknown update op %v", shared.ErrInvalidArgument, u.Op)
		}
	}
	return nil
}

// normalizeValue round-trips v through JSON so it compares equal to decoded document values.
func normalizeValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return out, nil
}

func containsValue(arr []any, v any) bool {
	for _, el := range arr {
		if reflect.DeepEqual(el, v) {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func toArray(v any) ([]any, error) {
	switch a := v.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return append([]any(nil), a...), nil
	default:
		return nil, fmt.Errorf("not an array: %T", v)
	}
}
