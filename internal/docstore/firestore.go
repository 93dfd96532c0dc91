package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/desertthunder/soundpost/internal/shared"
)

// FirestoreStore is a [Store] backed by Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore connects to the project's default database.
func NewFirestoreStore(ctx context.Context, projectID string, opts ...option.ClientOption) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: firebase project_id is required for the firestore backend", shared.ErrMissingConfig)
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// Add creates a document with a Firestore generated id.
func (s *FirestoreStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, toFirestore(data))
	if err != nil {
		return "", fmt.Errorf("failed to add document to %s: %w", collection, err)
	}
	return ref.ID, nil
}

// Set creates or replaces a document.
func (s *FirestoreStore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, toFirestore(data)); err != nil {
		return fmt.Errorf("failed to set document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get returns the document or nil when it does not exist.
func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	return fromSnapshot(snap), nil
}

// Query runs a Firestore query. Ordering by a field also requires a composite index when combined with filters.
func (s *FirestoreStore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	query := s.client.Collection(collection).Query
	for _, w := range q.Where {
		query = query.Where(w.Field, "==", w.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var docs []Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", collection, err)
		}
		docs = append(docs, *fromSnapshot(snap))
	}
	return docs, nil
}

// Update translates field updates into Firestore transforms and applies them in one write.
func (s *FirestoreStore) Update(ctx context.Context, collection, id string, updates ...FieldUpdate) error {
	fsUpdates := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		fu, err := toFirestoreUpdate(u)
		if err != nil {
			return err
		}
		fsUpdates = append(fsUpdates, fu)
	}

	_, err := s.client.Collection(collection).Doc(id).Update(ctx, fsUpdates)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s/%s", shared.ErrNotFound, collection, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes a document.
func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Close closes the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func toFirestoreUpdate(u FieldUpdate) (firestore.Update, error) {
	switch u.Op {
	case OpSet:
		if u.Value == ServerTimestamp {
			return firestore.Update{Path: u.Field, Value: firestore.ServerTimestamp}, nil
		}
		return firestore.Update{Path: u.Field, Value: u.Value}, nil
	case OpIncrement:
		return firestore.Update{Path: u.Field, Value: firestore.Increment(u.Value)}, nil
	case OpArrayUnion:
		return firestore.Update{Path: u.Field, Value: firestore.ArrayUnion(u.Values...)}, nil
	case OpArrayRemove:
		return firestore.Update{Path: u.Field, Value: firestore.ArrayRemove(u.Values...)}, nil
	default:
		return firestore.Update{}, fmt.Errorf("%w: unknown update op %v", shared.ErrInvalidArgument, u.Op)
	}
}

func toFirestore(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if v == ServerTimestamp {
			out[k] = firestore.ServerTimestamp
			continue
		}
		out[k] = v
	}
	return out
}

func fromSnapshot(snap *firestore.DocumentSnapshot) *Document {
	return &Document{ID: snap.Ref.ID, Data: convertTimes(snap.Data()).(map[string]any)}
}

// convertTimes rewrites Firestore timestamps as ISO-8601 strings, recursing into maps and arrays.
func convertTimes(v any) any {
	switch t := v.(type) {
	case time.Time:
		return shared.Timestamp(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = convertTimes(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = convertTimes(val)
		}
		return out
	case int64:
		return float64(t)
	default:
		return v
	}
}
