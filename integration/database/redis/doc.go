// Package redis provides Redis client initialization and health checking.
//
// The producer uses Redis as the upstream result bus: the game engine
// publishes each spin result on roulette:results:<table> and the ingest
// relay forwards it to the broadcast service.
//
// # Configuration
//
//	type Config struct {
//		ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`
//		RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
//		RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
//		ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
//	}
//
// Both redis:// and rediss:// (TLS) URLs are accepted.
//
// # Usage
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	checks := []health.Check{{Name: "redis", Fn: redis.Healthcheck(client)}}
//
// # Errors
//
//   - ErrEmptyConnectionURL: no URL configured
//   - ErrFailedToParseRedisConnString: the URL is malformed
//   - ErrRedisNotReady: no successful ping within the retry budget
//   - ErrHealthcheckFailed: a health check ping failed
package redis
