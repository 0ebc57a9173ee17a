package queue

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExportJobsExchange = "citai.exports"
	ExportJobsQueue    = "citai.exports.generate"
	ExportJobsDLQ      = "citai.exports.dlq"
	ExportJobsRK       = "generate"
	ExportJobsDeadRK   = "dead"
)

// ExportJobMessage is the queue payload. The job itself lives in the status
// store; the message only carries its id.
type ExportJobMessage struct {
	JobID        string `json:"jobId"`
	RestaurantID string `json:"restaurantId"`
}

// EnsureExportJobsTopology declares a direct exchange with the work queue
// and its dead-letter queue. Messages nacked without requeue land in the DLQ.
func EnsureExportJobsTopology(ctx context.Context, qc *Client) error {
	if qc == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := qc.ch.ExchangeDeclare(ExportJobsExchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if err := qc.durableQueue(ExportJobsDLQ, ExportJobsExchange, ExportJobsDeadRK, nil); err != nil {
		return err
	}
	return qc.durableQueue(ExportJobsQueue, ExportJobsExchange, ExportJobsRK, amqp.Table{
		"x-dead-letter-exchange":    ExportJobsExchange,
		"x-dead-letter-routing-key": ExportJobsDeadRK,
	})
}

func (c *Client) PublishExportJob(ctx context.Context, msg ExportJobMessage) error {
	if msg.JobID == "" {
		return errors.New("job id is required")
	}
	return c.publishJSON(ctx, ExportJobsExchange, ExportJobsRK, msg)
}
