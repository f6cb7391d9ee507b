package model

import (
	"time"

	"github.com/jt828/wolam/internal/constant"
	"github.com/jt828/wolam/pkg/idempotency"
)

func (dataEntity *IdempotencyRecordDataEntity) ToDomain() idempotency.Record {
	return idempotency.Record{
		Id:           dataEntity.Id,
		RequestType:  string(dataEntity.RequestType),
		ReferenceId:  dataEntity.ReferenceId,
		ResponseData: dataEntity.ResponseData,
		CreatedAt:    dataEntity.CreatedAt,
	}
}

func IdempotencyRecordFromDomain(record *idempotency.Record) IdempotencyRecordDataEntity {
	return IdempotencyRecordDataEntity{
		Id:           record.Id,
		RequestType:  constant.RequestType(record.RequestType),
		ReferenceId:  record.ReferenceId,
		ResponseData: record.ResponseData,
		CreatedAt:    record.CreatedAt,
	}
}

type IdempotencyRecordDataEntity struct {
	Id           int64                `gorm:"column:id;primaryKey"`
	RequestType  constant.RequestType `gorm:"column:request_type"`
	ReferenceId  int64                `gorm:"column:reference_id"`
	ResponseData string               `gorm:"column:response_data"`
	CreatedAt    time.Time            `gorm:"column:created_at"`
}

func (dataEntity *IdempotencyRecordDataEntity) TableName() string {
	return "main.idempotency_records"
}
