// Package notifications centralizes logging of bus events so queue and
// session activity shows up in one place.
package notifications

import (
	"context"

	"github.com/charmbracelet/log"

	"voxbot/internal/app/events"
)

type EventLogger struct {
	logger *log.Logger
}

func NewEventLogger(logger *log.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Run consumes bus events until ctx is cancelled.
func (l *EventLogger) Run(ctx context.Context, bus *events.Bus) {
	spoken, unsubSpoken := bus.Subscribe(events.TopicTTSSpoken)
	defer unsubSpoken()
	appErr, unsubErr := bus.Subscribe(events.TopicAppError)
	defer unsubErr()

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-spoken:
			dto, ok := payload.(events.TTSSpokenDTO)
			if !ok {
				continue
			}
			if dto.OK {
				l.logger.Info("spoken", "id", dto.ID, "by", dto.RequestedBy)
			} else {
				l.logger.Warn("speak failed", "id", dto.ID, "err", dto.Error)
			}
		case payload := <-appErr:
			l.logger.Error("app error", "payload", payload)
		}
	}
}
