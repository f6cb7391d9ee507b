package idempotency

import (
	"context"

	"github.com/jt828/wolam/internal/constant"
)

type RecordRepository interface {
	Get(ctx context.Context, id int64) (*Record, error)
	Insert(ctx context.Context, record *Record) error
}

// Key identifies one client request. ReferenceId points at the entity the
// first execution created.
type Key struct {
	Id          int64
	RequestType constant.RequestType
	ReferenceId int64
}

// Idempotency replays the stored result for a known key instead of running fn
// again. newResult allocates the value the stored result decodes into.
type Idempotency interface {
	Execute(ctx context.Context, repo RecordRepository, key Key, newResult func() any, fn func() (any, error)) (result any, replayed bool, err error)
}

// Run is Execute with the result type fixed to *T.
func Run[T any](ctx context.Context, idem Idempotency, repo RecordRepository, key Key, fn func() (*T, error)) (*T, bool, error) {
	result, replayed, err := idem.Execute(ctx, repo, key,
		func() any { return new(T) },
		func() (any, error) { return fn() },
	)
	if err != nil {
		return nil, false, err
	}
	return result.(*T), replayed, nil
}
