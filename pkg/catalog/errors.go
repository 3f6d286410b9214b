package catalog

import "github.com/pkg/errors"

// Sentinel errors for catalog requests.
var (
	ErrRateLimited = errors.New("catalog: rate limited by server")
	ErrBadRequest  = errors.New("catalog: bad request")
	ErrServer      = errors.New("catalog: server error")
)
