package model

import (
	"time"

	"github.com/jt828/wolam/internal/constant"
)

func (dataEntity *GenerationJobDataEntity) ToDomain() GenerationJob {
	return GenerationJob(*dataEntity)
}

func GenerationJobFromDomain(job *GenerationJob) GenerationJobDataEntity {
	return GenerationJobDataEntity(*job)
}

type GenerationJobDataEntity struct {
	Id             int64              `gorm:"column:id;primaryKey"`
	MetricCount    int                `gorm:"column:metric_count"`
	Region         string             `gorm:"column:region"`
	Environment    string             `gorm:"column:environment"`
	Status         constant.JobStatus `gorm:"column:status"`
	CompletedUnits int                `gorm:"column:completed_units"`
	CreatedAt      time.Time          `gorm:"column:created_at"`
	UpdatedAt      time.Time          `gorm:"column:updated_at"`
}

func (dataEntity *GenerationJobDataEntity) TableName() string {
	return "main.generation_jobs"
}

// GenerationJob is one background run of synthetic metric generation.
type GenerationJob struct {
	Id             int64              `json:"id,string"`
	MetricCount    int                `json:"metric_count"`
	Region         string             `json:"region"`
	Environment    string             `json:"environment"`
	Status         constant.JobStatus `json:"status"`
	CompletedUnits int                `json:"completed_units"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}
