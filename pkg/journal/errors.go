package journal

import "errors"

var (
	ErrInsertFailed = errors.New("journal: insert failed")
	ErrQueryFailed  = errors.New("journal: query failed")
)
