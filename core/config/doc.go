// Package config loads component configuration from the environment.
//
// Each component declares its own struct with env tags next to its code:
// server.Config (SERVER_*), broadcast.Config (BROADCAST_*), feed.Config
// (FEED_*), redis.Config (REDIS_*), mongo.Config (MONGODB_*) and
// ingest.Config (INGEST_*). Binaries load the ones they need:
//
//	var (
//		srv server.Config
//		bc  broadcast.Config
//	)
//	if err := config.Load(&srv); err != nil {
//		return err
//	}
//	config.MustLoad(&bc)
//
// A .env file in the working directory is read once, before the first
// parse, and never overrides variables already set in the process.
//
// The first successful parse of a type is cached; later calls for the same
// type copy the cached value and do not look at the environment again.
// Tests that change variables with t.Setenv call Reset to drop the cache.
//
// Load returns ErrNilConfig for a nil pointer. Parse failures, such as a
// missing required variable or a malformed duration, wrap ErrParse together
// with the underlying env error:
//
//	if errors.Is(err, config.ErrParse) {
//		// bad or missing BROADCAST_* value
//	}
package config
