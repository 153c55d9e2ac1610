package notifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/RichardKnop/machinery/v1/tasks"
	"go.uber.org/zap"

	"fluidmeter-api-server/internal/api/alert"
)

const (
	AlertEmailTask = "alert_email"
	retryCount     = 3
)

type Dispatcher interface {
	SendTaskWithContext(ctx context.Context, task *tasks.Signature, name string) (*tasks.TaskState, error)
}

// QueueNotifier hands each owner's batch to the task queue. Delivery happens
// on a worker, so Notify returns once the broker accepted the task.
type QueueNotifier struct {
	dispatcher Dispatcher
	logger     *zap.Logger
}

var _ alert.Notifier = (*QueueNotifier)(nil)

func NewQueueNotifier(dispatcher Dispatcher, logger *zap.Logger) *QueueNotifier {
	return &QueueNotifier{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (n *QueueNotifier) Notify(ctx context.Context, ownerID string, findings []*alert.MeterFindings) error {
	payload, err := EncodeFindings(findings)
	if err != nil {
		return fmt.Errorf("encode findings: %w", err)
	}

	task := &tasks.Signature{
		Name: AlertEmailTask,
		Args: []tasks.Arg{
			{
				Type:  "string",
				Value: ownerID,
			},
			{
				Type:  "string",
				Value: payload,
			},
		},
		RetryCount: retryCount,
	}

	taskState, err := n.dispatcher.SendTaskWithContext(ctx, task, uniqueName(ownerID, payload))
	if err != nil {
		return err
	}
	n.logger.Debug("alert task queued",
		zap.String("owner_id", ownerID),
		zap.String("uuid", taskState.TaskUUID))
	return nil
}

// uniqueName identifies a batch so the same findings are not queued twice.
func uniqueName(ownerID, payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("%s/%s/%s", AlertEmailTask, ownerID, hex.EncodeToString(sum[:8]))
}
