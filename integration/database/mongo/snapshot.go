package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/spinstream/core/stream"
)

// Collection is the subset of *mongo.Collection used by SnapshotStore.
type Collection interface {
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) *mongo.SingleResult
}

type spinDocument struct {
	Table     string    `bson:"table"`
	Payload   string    `bson:"payload"`
	CreatedAt time.Time `bson:"created_at"`
}

// SnapshotStore reads the most recent result of a table from the history
// collection. It seeds the snapshot of channels that have not seen a live
// event since they were created.
type SnapshotStore struct {
	coll Collection
}

// NewSnapshotStore reads from coll, usually the history collection.
func NewSnapshotStore(coll Collection) (*SnapshotStore, error) {
	if coll == nil {
		return nil, ErrNilCollection
	}
	return &SnapshotStore{coll: coll}, nil
}

// Latest returns the newest stored result for channel as an unsequenced
// update. ok is false when the table has no history.
func (s *SnapshotStore) Latest(ctx context.Context, channel string) (stream.Event, bool, error) {
	res := s.coll.FindOne(ctx,
		bson.D{{Key: "table", Value: channel}},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)

	var doc spinDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return stream.Event{}, false, nil
		}
		return stream.Event{}, false, errors.Join(ErrSnapshotLookup, fmt.Errorf("table %q: %w", channel, err))
	}
	if doc.Payload == "" {
		return stream.Event{}, false, nil
	}
	return stream.Update(channel, 0, doc.Payload, doc.CreatedAt), true, nil
}
