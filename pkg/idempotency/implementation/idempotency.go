package implementation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jt828/wolam/pkg/apperror"
	"github.com/jt828/wolam/pkg/idempotency"
)

type idempotencyImpl struct {
	now func() time.Time
}

func NewIdempotency() idempotency.Idempotency {
	return &idempotencyImpl{now: time.Now}
}

func (i *idempotencyImpl) Execute(
	ctx context.Context,
	repo idempotency.RecordRepository,
	key idempotency.Key,
	newResult func() any,
	fn func() (any, error),
) (any, bool, error) {
	if key.Id <= 0 {
		return nil, false, fmt.Errorf("idempotency id must be greater than 0: %w", apperror.ErrInvalidArgument)
	}

	record, err := repo.Get(ctx, key.Id)
	if err != nil {
		return nil, false, err
	}

	if record != nil {
		if record.RequestType != string(key.RequestType) {
			return nil, false, fmt.Errorf("idempotency id %d already used for %s: %w", key.Id, record.RequestType, apperror.ErrInvalidArgument)
		}
		result := newResult()
		if err := json.Unmarshal([]byte(record.ResponseData), result); err != nil {
			return nil, false, fmt.Errorf("decode stored result of %d: %w", key.Id, err)
		}
		return result, true, nil
	}

	result, err := fn()
	if err != nil {
		return nil, false, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, false, err
	}

	err = repo.Insert(ctx, &idempotency.Record{
		Id:           key.Id,
		RequestType:  string(key.RequestType),
		ReferenceId:  key.ReferenceId,
		ResponseData: string(data),
		CreatedAt:    i.now().UTC(),
	})
	if err != nil {
		return nil, false, err
	}

	return result, false, nil
}
