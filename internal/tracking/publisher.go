// Package tracking streams accepted engagement events to the rollup queue.
package tracking

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/soundbite/engagement/internal/domain"
	"github.com/soundbite/engagement/internal/pkg/logger"
)

// Publisher hands an accepted event to downstream consumers. Publishing is
// best-effort and never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, evt *domain.EngagementEvent)
}

// NopPublisher drops events. Used when no queue is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, *domain.EngagementEvent) {}

// SQSAPI is the subset of the SQS client the publisher needs.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends events to an SQS queue. Each send runs on its own
// goroutine with a 5s timeout, detached from the request context.
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewSQSPublisher creates a publisher for queueURL.
func NewSQSPublisher(client SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL, timeout: 5 * time.Second}
}

// Publish implements Publisher.
func (p *SQSPublisher) Publish(_ context.Context, evt *domain.EngagementEvent) {
	body, err := json.Marshal(evt)
	if err != nil {
		logger.Error("marshal engagement event", "event_id", evt.ID, "error", err)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(p.queueURL),
			MessageBody: aws.String(string(body)),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"event_kind": {DataType: aws.String("String"), StringValue: aws.String(string(evt.Kind))},
			},
		})
		if err != nil {
			logger.Warn("publish engagement event", "event_id", evt.ID, "error", err)
		}
	}()
}

// Wait blocks until in-flight sends finish. Called on shutdown.
func (p *SQSPublisher) Wait() {
	p.wg.Wait()
}
