package jobqueue

import (
	"context"
	"fmt"
	"time"
)

const notifyTimeout = 20 * time.Second

// processPushcutNotifyJob delivers one owner push. Errors bubble up so the
// queue's retry machinery handles transient Pushcut outages.
func (q *Queue) processPushcutNotifyJob(ctx context.Context, job *Job) error {
	if q.notifier == nil {
		return fmt.Errorf("no notifier configured")
	}

	payload, err := PushcutNotifyJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid pushcut_notify payload: %w", err)
	}

	notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	return q.notifier.Notify(notifyCtx, payload.FunnelID, payload.EventType, payload.Vars)
}
