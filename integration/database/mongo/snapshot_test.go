package mongo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/spinstream/core/broadcast"
	"github.com/dmitrymomot/spinstream/core/stream"
	"github.com/dmitrymomot/spinstream/integration/database/mongo"
)

type fakeCollection struct {
	doc    any
	err    error
	filter any
}

func (f *fakeCollection) FindOne(_ context.Context, filter any, _ ...options.Lister[options.FindOneOptions]) *mongodrv.SingleResult {
	f.filter = filter
	doc := f.doc
	if doc == nil {
		doc = bson.D{}
	}
	return mongodrv.NewSingleResultFromDocument(doc, f.err, nil)
}

func TestSnapshotStore_Latest(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	coll := &fakeCollection{doc: bson.M{
		"table":      "table-1",
		"payload":    `{"number":0,"color":"green"}`,
		"created_at": at,
	}}
	store, err := mongo.NewSnapshotStore(coll)
	require.NoError(t, err)

	ev, ok, err := store.Latest(context.Background(), "table-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ev.IsSnapshot())
	assert.Equal(t, "table-1", ev.Channel)
	assert.Equal(t, `{"number":0,"color":"green"}`, ev.Payload)
	assert.True(t, at.Equal(ev.EmittedAt))
	assert.Equal(t, bson.D{{Key: "table", Value: "table-1"}}, coll.filter)
}

func TestSnapshotStore_NoHistory(t *testing.T) {
	t.Parallel()
	store, err := mongo.NewSnapshotStore(&fakeCollection{err: mongodrv.ErrNoDocuments})
	require.NoError(t, err)

	_, ok, err := store.Latest(context.Background(), "table-9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotStore_LookupError(t *testing.T) {
	t.Parallel()
	store, err := mongo.NewSnapshotStore(&fakeCollection{err: errors.New("socket closed")})
	require.NoError(t, err)

	_, _, err = store.Latest(context.Background(), "table-1")
	require.ErrorIs(t, err, mongo.ErrSnapshotLookup)
}

func TestSnapshotStore_SeedsRegistry(t *testing.T) {
	t.Parallel()
	store, err := mongo.NewSnapshotStore(&fakeCollection{doc: bson.M{
		"table":      "table-1",
		"payload":    "17 black",
		"created_at": time.Now(),
	}})
	require.NoError(t, err)

	var _ broadcast.SnapshotSource = store
	reg := broadcast.NewRegistry(broadcast.WithSnapshotSource(store))
	t.Cleanup(reg.Close)

	svc, err := broadcast.NewService(reg)
	require.NoError(t, err)
	seq, err := svc.Publish(context.Background(), "table-1", "0 green")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq, "seeded snapshot does not consume a sequence id")

	ev, ok := svc.Latest("table-1")
	require.True(t, ok)
	assert.Equal(t, stream.KindUpdate, ev.Kind)
	assert.Equal(t, "0 green", ev.Payload)
}

func TestNewSnapshotStore_Nil(t *testing.T) {
	t.Parallel()
	_, err := mongo.NewSnapshotStore(nil)
	require.ErrorIs(t, err, mongo.ErrNilCollection)
}

func TestConnect_EmptyURL(t *testing.T) {
	t.Parallel()
	_, err := mongo.Connect(context.Background(), mongo.Config{})
	require.ErrorIs(t, err, mongo.ErrEmptyConnectionURL)
}
