// Package health provides echo handlers for service health monitoring.
//
// Handlers:
//   - Liveness: Process is running (no dependency checks)
//   - Readiness: All dependencies are available
//
// Usage:
//
//	e.GET("/health/live", health.Liveness)
//	e.GET("/health/ready", health.Readiness(log,
//		health.Check{Name: "redis", Fn: redis.Healthcheck(client)},
//		health.Check{Name: "mongo", Fn: mongo.Healthcheck(client)},
//	))
//
// Dependency checks follow the func(context.Context) error signature, the
// same one the integration packages return from Healthcheck.
package health
