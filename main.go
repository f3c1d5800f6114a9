package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/service/pinpointsmsvoice"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/redis/go-redis/v9"

	"cgm-alert-pipeline/src/alerts"
	"cgm-alert-pipeline/src/backfill"
	"cgm-alert-pipeline/src/cache"
	"cgm-alert-pipeline/src/config"
	"cgm-alert-pipeline/src/dexcom"
	"cgm-alert-pipeline/src/dynamo"
	apperrors "cgm-alert-pipeline/src/errors"
	"cgm-alert-pipeline/src/kinesis"
	"cgm-alert-pipeline/src/logger"
	"cgm-alert-pipeline/src/metrics"
	"cgm-alert-pipeline/src/notify"
	"cgm-alert-pipeline/src/refresh"
	"cgm-alert-pipeline/src/secrets"
)

// app holds the handlers built once per cold start.
type app struct {
	cfg       *config.Config
	alerts    *kinesis.AlertProcessor
	raw       *kinesis.RawProcessor
	backfill  *backfill.Worker
	scheduler *refresh.Scheduler
	refresher *refresh.Refresher
	errs      *apperrors.Handler
}

func newApp(cfg *config.Config) *app {
	sess := dynamo.GetSession(cfg.Region, cfg.EndpointURL)
	store := dynamo.NewStore(dynamo.GetDynamoDBClient(sess), dynamo.Tables(cfg.Tables))

	provider := dexcom.NewClient(cfg.Dexcom.BaseURL, dexcom.WithRateLimit(cfg.Dexcom.RateLimit, cfg.Dexcom.RateBurst))
	notifier := notify.NewNotifier(sns.New(sess), pinpointsmsvoice.New(sess), cfg.Voice.OriginationNumber, cfg.Voice.CallerID)
	statusCache := cache.NewRedisStore(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	defaults := alerts.DefaultSettings(alerts.Thresholds{
		UrgentLow: cfg.DefaultThresholds.UrgentLow,
		Low:       cfg.DefaultThresholds.Low,
		High:      cfg.DefaultThresholds.High,
	})

	return &app{
		cfg: cfg,
		alerts: kinesis.NewAlertProcessor(store, provider, notifier, statusCache, kinesis.AlertOptions{
			DefaultSettings: defaults,
			StatusTTL:       cfg.AlertStatusTTL,
			StaleAfter:      cfg.StaleReadingAge,
		}),
		raw: kinesis.NewRawProcessor(store),
		backfill: backfill.NewWorker(store, provider, backfill.Options{
			Chunk:          cfg.BackfillChunk,
			LookbackMonths: cfg.BackfillLookbackMonths,
		}),
		scheduler: refresh.NewScheduler(store, sqs.New(sess), cfg.Queues.RefreshURL, cfg.RefreshWindow),
		refresher: refresh.NewRefresher(store, provider, secrets.NewStore(secretsmanager.New(sess)), cfg.Dexcom.SecretName, cfg.RefreshWindow),
		errs:      apperrors.NewHandler(logger.GetLogger()),
	}
}

// handle determines which handler to run based on the event type.
func (a *app) handle(ctx context.Context, raw json.RawMessage) (any, error) {
	defer metrics.Flush(ctx, a.cfg.PushgatewayURL)

	event, err := kinesis.DetectEvent(raw)
	if err != nil {
		logger.Error("Error detecting event type", "error", err)
		return nil, err
	}

	switch event.Kind {
	case kinesis.KindStream:
		if a.cfg.StreamConsumer == config.StreamConsumerRaw {
			return a.raw.Handler(ctx, event.Kinesis), nil
		}
		return a.alerts.Handler(ctx, event.Kinesis), nil

	case kinesis.KindQueue:
		return a.handleQueue(ctx, event.SQS)

	case kinesis.KindSchedule:
		if _, err := a.scheduler.ScanExpiringSessions(ctx); err != nil {
			a.errs.Handle(ctx, err)
			return nil, err
		}
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Kind)
	}
}

// handleQueue routes a queue batch by its source ARN. A batch only ever
// comes from one event source mapping.
func (a *app) handleQueue(ctx context.Context, sqsEvent events.SQSEvent) (any, error) {
	source := sqsEvent.Records[0].EventSourceARN

	switch {
	case a.cfg.Queues.RefreshARN != "" && source == a.cfg.Queues.RefreshARN:
		if err := a.refresher.Handler(ctx, sqsEvent); err != nil {
			a.errs.Handle(ctx, err)
			return nil, err
		}
		return nil, nil

	case a.cfg.Queues.BackfillARN == "" || source == a.cfg.Queues.BackfillARN:
		return a.backfill.Handler(ctx, sqsEvent), nil

	default:
		return nil, fmt.Errorf("no handler for queue %s", source)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", "error", err)
	}
	logger.Init(cfg.Logger)

	lambda.Start(newApp(cfg).handle)
}
