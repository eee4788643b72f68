package main

// Build the Lambda worker binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"pantry-intake/internal/bootstrap"
	"pantry-intake/internal/shared/config"
	"pantry-intake/internal/shared/metrics"
	"pantry-intake/internal/shared/storage/db"
	"pantry-intake/internal/shared/telemetry"
	"pantry-intake/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	proc     workerproc.Processor
)

func initApp() {
	cfg := config.Load()
	telemetry.Init(telemetry.Options{Level: cfg.LogLevel})
	opts := db.DefaultWorkerOptions()
	built, err := bootstrap.Build(context.Background(), cfg, bootstrap.Options{DBOptions: &opts, SharedDB: true, SkipRouter: true})
	if err != nil {
		initErr = err
		return
	}
	proc = workerproc.NewCoalesced(built.Service)
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda_worker.bootstrap_failed", map[string]any{"error": initErr})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processBatch(ctx, proc, event), nil
}

// processBatch reports only retryable failures so unrecoverable messages leave the queue.
func processBatch(ctx context.Context, p workerproc.Processor, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncQueueMessage("received")
		_, err := workerproc.HandleMessage(ctx, p, record.Body)
		switch {
		case err == nil:
			metrics.IncQueueMessage("completed")
		case workerproc.Retryable(err):
			telemetry.Error("lambda_worker.message_failed", map[string]any{"sqs_message_id": record.MessageId, "error": err})
			metrics.IncQueueMessage("failed")
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		default:
			telemetry.Warn("lambda_worker.message_dropped", map[string]any{"sqs_message_id": record.MessageId, "error": err})
			metrics.IncQueueMessage("dropped")
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
