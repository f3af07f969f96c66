package entities

import (
	"time"

	"github.com/google/uuid"
	"worker-translate/constant"
)

type Job struct {
	ID           uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	FileName     string             `json:"file_name" gorm:"type:varchar(255);not null"`
	FileType     string             `json:"file_type" gorm:"type:varchar(255);not null"`
	LanguageCode string             `json:"language_code" gorm:"type:varchar(10);not null"`
	BucketName   string             `json:"bucket_name" gorm:"type:varchar(255);not null"`
	ObjectKey    string             `json:"object_key" gorm:"type:varchar(500);not null"`
	Status       constant.JobStatus `json:"status" gorm:"type:varchar(20);not null;index:idx_jobs_status"`
	OutputKey    string             `json:"output_key" gorm:"type:varchar(500)"`
	ErrorDetail  string             `json:"error_detail" gorm:"type:text"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	CompletedAt  *time.Time         `json:"completed_at"`
}

func (Job) TableName() string {
	return "jobs"
}
