package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"worker-translate/dto"
	"worker-translate/service"
)

type ServiceDependencies struct {
	TriggerService service.TriggerService
}

// ObjectCreatedHandler unwraps a bucket-notification envelope and runs the
// trigger once per record. Non-retryable outcomes are marked permanent so
// the consumer dead-letters instead of redelivering.
func ObjectCreatedHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var notification dto.BucketNotification
	if err := json.Unmarshal(msg.Body, &notification); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal bucket notification")
		return backoff.Permanent(errors.Join(service.ErrNonRetryable, service.ErrMalformedEvent, err))
	}
	if len(notification.Records) == 0 {
		zerolog.Ctx(ctx).Error().Str("event_name", notification.EventName).Msg("bucket notification carries no records")
		return backoff.Permanent(errors.Join(service.ErrNonRetryable, service.ErrMalformedEvent))
	}

	for _, record := range notification.Records {
		event := dto.ObjectCreatedEvent{
			Bucket:   record.S3.Bucket.Name,
			Key:      decodeObjectKey(record.S3.Object.Key),
			Metadata: record.S3.Object.UserMetadata,
		}

		zerolog.Ctx(ctx).Info().
			Str("event_name", record.EventName).
			Str("bucket", event.Bucket).
			Str("object_key", event.Key).
			Msg("received object-created notification")

		if err := deps.TriggerService.Process(ctx, event); err != nil {
			if errors.Is(err, service.ErrNonRetryable) {
				return backoff.Permanent(err)
			}
			return err
		}
	}

	return nil
}

// Notification records carry the object key url-encoded the way S3 events
// do; decode before matching against registered keys.
func decodeObjectKey(key string) string {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}
