package dto

import (
	"time"

	"github.com/google/uuid"
)

type UploadSlotRequest struct {
	FileName     string `json:"fileName"`
	FileType     string `json:"fileType"`
	LanguageCode string `json:"languageCode"`
}

type UploadSlotResponse struct {
	JobId     uuid.UUID `json:"jobId"`
	Url       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ObjectCreatedEvent is the normalized form of one storage notification
// record, after the AMQP envelope has been unwrapped.
type ObjectCreatedEvent struct {
	Bucket   string            `json:"bucket"`
	Key      string            `json:"key"`
	Metadata map[string]string `json:"metadata"`
}

// BucketNotification is the S3-style event envelope MinIO publishes to the
// notification exchange. Only the fields the trigger needs are mapped.
type BucketNotification struct {
	EventName string               `json:"EventName"`
	Key       string               `json:"Key"`
	Records   []NotificationRecord `json:"Records"`
}

type NotificationRecord struct {
	EventName string   `json:"eventName"`
	S3        S3Entity `json:"s3"`
}

type S3Entity struct {
	Bucket S3Bucket `json:"bucket"`
	Object S3Object `json:"object"`
}

type S3Bucket struct {
	Name string `json:"name"`
}

type S3Object struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"contentType"`
	UserMetadata map[string]string `json:"userMetadata"`
}
