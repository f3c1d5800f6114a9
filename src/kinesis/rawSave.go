package kinesis

import (
	"context"

	"github.com/aws/aws-lambda-go/events"

	"cgm-alert-pipeline/src/logger"
	"cgm-alert-pipeline/src/metrics"
	"cgm-alert-pipeline/src/types"
)

type ReadingWriter interface {
	SaveReading(ctx context.Context, reading types.GlucoseReading) error
}

// RawProcessor persists every stream reading without alerting.
type RawProcessor struct {
	store ReadingWriter
}

func NewRawProcessor(store ReadingWriter) *RawProcessor {
	return &RawProcessor{store: store}
}

func (p *RawProcessor) Handler(ctx context.Context, kinesisEvent events.KinesisEvent) events.KinesisEventResponse {
	var response events.KinesisEventResponse

	for _, record := range kinesisEvent.Records {
		sequenceNumber := record.Kinesis.SequenceNumber

		telemetry, err := decodeRecord(record.Kinesis.Data)
		if err == nil {
			err = p.store.SaveReading(ctx, telemetry.Reading)
		}
		if err != nil {
			logger.Error("failed to save raw reading", "sequenceNumber", sequenceNumber, "error", err)
			response.BatchItemFailures = append(response.BatchItemFailures, events.KinesisBatchItemFailure{
				ItemIdentifier: sequenceNumber,
			})
			metrics.RecordProcessed(consumerRaw, metrics.OutcomeFailed)
			continue
		}
		metrics.RecordProcessed(consumerRaw, metrics.OutcomeOK)
	}

	return response
}
