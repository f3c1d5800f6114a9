package kinesis

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// EventKind tags the inbound trigger of an invocation.
type EventKind string

const (
	KindStream   EventKind = "stream"
	KindQueue    EventKind = "queue"
	KindSchedule EventKind = "schedule"
)

// Event is the decoded invocation payload. Only the field matching Kind is set.
type Event struct {
	Kind     EventKind
	Kinesis  events.KinesisEvent
	SQS      events.SQSEvent
	Schedule events.EventBridgeEvent
}

// DetectEvent works out which trigger produced the raw payload and decodes it.
func DetectEvent(raw json.RawMessage) (Event, error) {
	// Kinesis and SQS both deliver a Records array, told apart by eventSource
	var probe struct {
		Records []struct {
			EventSource string `json:"eventSource"`
		} `json:"Records"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil && len(probe.Records) > 0 {
		switch probe.Records[0].EventSource {
		case "aws:kinesis":
			var kinesisEvent events.KinesisEvent
			if err := json.Unmarshal(raw, &kinesisEvent); err != nil {
				return Event{}, fmt.Errorf("decode kinesis event: %w", err)
			}
			return Event{Kind: KindStream, Kinesis: kinesisEvent}, nil
		case "aws:sqs":
			var sqsEvent events.SQSEvent
			if err := json.Unmarshal(raw, &sqsEvent); err != nil {
				return Event{}, fmt.Errorf("decode sqs event: %w", err)
			}
			return Event{Kind: KindQueue, SQS: sqsEvent}, nil
		}
	}

	// Try parsing as an EventBridge scheduled event
	var scheduled events.EventBridgeEvent
	if err := json.Unmarshal(raw, &scheduled); err == nil {
		if scheduled.Source == "aws.events" || scheduled.DetailType == "Scheduled Event" {
			return Event{Kind: KindSchedule, Schedule: scheduled}, nil
		}
	}

	return Event{}, fmt.Errorf("unknown event type")
}
