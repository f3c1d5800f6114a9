package kinesis

import (
	"encoding/json"
	"testing"
)

func TestDetectEvent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want EventKind
	}{
		{
			name: "kinesis",
			raw:  `{"Records":[{"eventSource":"aws:kinesis","eventSourceARN":"arn:aws:kinesis:us-east-1:1:stream/egvs","kinesis":{"sequenceNumber":"1","data":"e30="}}]}`,
			want: KindStream,
		},
		{
			name: "sqs",
			raw:  `{"Records":[{"eventSource":"aws:sqs","eventSourceARN":"arn:aws:sqs:us-east-1:1:backfill","messageId":"m-1","body":"{}"}]}`,
			want: KindQueue,
		},
		{
			name: "schedule",
			raw:  `{"id":"e-1","detail-type":"Scheduled Event","source":"aws.events","detail":{}}`,
			want: KindSchedule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := DetectEvent(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("DetectEvent: %v", err)
			}
			if event.Kind != tt.want {
				t.Fatalf("kind = %s, want %s", event.Kind, tt.want)
			}
		})
	}
}

func TestDetectEventDecodesPayload(t *testing.T) {
	event, err := DetectEvent(json.RawMessage(`{"Records":[{"eventSource":"aws:kinesis","kinesis":{"sequenceNumber":"42","data":"e30="}}]}`))
	if err != nil {
		t.Fatalf("DetectEvent: %v", err)
	}
	got := event.Kinesis.Records[0].Kinesis
	if got.SequenceNumber != "42" || string(got.Data) != "{}" {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestDetectEventUnknown(t *testing.T) {
	for _, raw := range []string{`{"requestContext":{"routeKey":"$connect"}}`, `{"Records":[{"eventSource":"aws:s3"}]}`, `[]`} {
		if _, err := DetectEvent(json.RawMessage(raw)); err == nil {
			t.Errorf("expected error for %s", raw)
		}
	}
}
