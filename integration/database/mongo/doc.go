// Package mongo provides MongoDB client initialization, health checking and
// a snapshot source backed by the spin history collection.
//
// Connect wraps the official driver with application-level retries to ride
// out cold starts (Atlas clusters can take 5-8 seconds) and brief network
// interruptions during startup.
//
//	client, err := mongo.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Disconnect(context.Background())
//
//	store := mongo.NewSnapshotStore(client.Database(cfg.Database).Collection(cfg.HistoryCollection))
//	reg := broadcast.NewRegistry(broadcast.WithSnapshotSource(store))
//
// # Configuration
//
//	MONGODB_URL                 (required)
//	MONGODB_DATABASE            (default: roulette)
//	MONGODB_HISTORY_COLLECTION  (default: spins)
//	MONGODB_CONNECT_TIMEOUT     (default: 10s)
//	MONGODB_MAX_POOL_SIZE       (default: 100)
//	MONGODB_MIN_POOL_SIZE       (default: 1)
//	MONGODB_MAX_CONN_IDLE_TIME  (default: 300s)
//	MONGODB_RETRY_WRITES        (default: true)
//	MONGODB_RETRY_READS         (default: true)
//	MONGODB_RETRY_ATTEMPTS      (default: 3)
//	MONGODB_RETRY_INTERVAL      (default: 5s)
//
// # History documents
//
// The snapshot store reads documents shaped as
//
//	{ "table": "table-1", "payload": "<opaque result>", "created_at": ISODate(...) }
//
// and returns the newest one per table. An index on {table: 1, created_at: -1}
// keeps the lookup cheap.
package mongo
