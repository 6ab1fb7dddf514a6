package mongo

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("empty mongodb connection URL")
	ErrFailedToConnect    = errors.New("failed to connect to mongodb")
	ErrHealthcheckFailed  = errors.New("mongodb healthcheck failed")
	ErrNilCollection      = errors.New("nil history collection")
	ErrSnapshotLookup     = errors.New("snapshot lookup failed")
)
