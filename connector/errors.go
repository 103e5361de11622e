package connector

import "github.com/ceyewan/idalloc/xerrors"

var (
	ErrConfig        = xerrors.New("connector: invalid config")
	ErrConnection    = xerrors.New("connector: connection failed")
	ErrHealthCheck   = xerrors.New("connector: health check failed")
	ErrClientNil     = xerrors.New("connector: client is nil")
	ErrAlreadyClosed = xerrors.New("connector: already closed")
)
