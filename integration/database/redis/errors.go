package redis

import "errors"

// Errors returned by Connect and Healthcheck. The go-redis error is joined to
// each of them.
var (
	ErrEmptyConnectionURL           = errors.New("empty redis connection URL")
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection URL")
	ErrRedisNotReady                = errors.New("redis did not answer ping within the retry budget")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
)
