package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/labdesk/lab-issue-service/internal/events"
	"github.com/labdesk/lab-issue-service/internal/observability"
)

// StartLifecycleSubscribers registers the audit log and metrics handlers
// for ticket and account events.
func StartLifecycleSubscribers(dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}

	dispatcher.Subscribe(events.EventTicketReported, func(_ context.Context, e events.Event) error {
		payload, ok := e.Payload.(events.TicketReportedPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T", e.Payload)
		}
		metrics.RecordTicketReported(string(payload.Priority))
		logger.Info("ticket reported",
			zap.Int64("ticket_id", e.TicketID),
			zap.Int64("reporter_id", e.Actor.UserID),
			zap.String("priority", string(payload.Priority)),
			zap.String("ip_address", payload.IPAddress))
		return nil
	})

	dispatcher.Subscribe(events.EventTicketStatusChanged, func(_ context.Context, e events.Event) error {
		payload, ok := e.Payload.(events.TicketStatusChangedPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T", e.Payload)
		}
		metrics.RecordStatusTransition(string(payload.OldStatus), string(payload.NewStatus))
		logger.Info("ticket status changed",
			zap.Int64("ticket_id", e.TicketID),
			zap.Int64("actor_id", e.Actor.UserID),
			zap.String("from", string(payload.OldStatus)),
			zap.String("to", string(payload.NewStatus)))
		return nil
	})

	dispatcher.Subscribe(events.EventTicketAssigned, func(_ context.Context, e events.Event) error {
		payload, ok := e.Payload.(events.TicketAssignedPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T", e.Payload)
		}
		logger.Info("ticket assigned",
			zap.Int64("ticket_id", e.TicketID),
			zap.Int64("assignee_id", payload.NewAssignee))
		return nil
	})

	dispatcher.Subscribe(events.EventUserRegistered, func(_ context.Context, e events.Event) error {
		payload, ok := e.Payload.(events.UserRegisteredPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T", e.Payload)
		}
		logger.Info("user registered",
			zap.Int64("user_id", e.Actor.UserID),
			zap.String("username", payload.Username),
			zap.String("role", string(payload.Role)))
		return nil
	})
}
