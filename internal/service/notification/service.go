// Package notification tells clinical staff when departmental results are
// ready for review.
package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/RyneJoanams/gulf-main-sub001/internal/email"
	"github.com/RyneJoanams/gulf-main-sub001/internal/service/record"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/messaging"
)

// Events that produce a notification, with the department named in the mail.
var notify = map[string]string{
	record.ResourceLabReport + "_" + record.ActionCreate: "Laboratory",
	record.ResourceRadiology + "_" + record.ActionCreate: "Radiology",
}

type Service struct {
	mailer     email.Service
	recipients []string
	logger     zerolog.Logger
}

func NewService(mailer email.Service, recipients []string, logger zerolog.Logger) *Service {
	return &Service{
		mailer:     mailer,
		recipients: recipients,
		logger:     logger.With().Str("component", "notification").Logger(),
	}
}

// Handle emails the clinical recipients about ev when it announces new
// results. Other events are ignored.
func (s *Service) Handle(ctx context.Context, ev messaging.Event) error {
	dept, ok := notify[ev.Type]
	if !ok {
		return nil
	}
	if len(s.recipients) == 0 {
		s.logger.Debug().Str("event", ev.Type).Msg("no clinical recipients configured")
		return nil
	}

	msg := composeResultsReady(dept, ev)
	msg.To = s.recipients
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify %s: %w", ev.LabNumber, err)
	}
	s.logger.Info().
		Str("event", ev.Type).
		Str("lab_number", ev.LabNumber).
		Int("recipients", len(s.recipients)).
		Msg("results notification sent")
	return nil
}

func composeResultsReady(dept string, ev messaging.Event) email.Message {
	labNumber := ev.LabNumber
	if labNumber == "" {
		labNumber = "(no lab number)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s results for lab number %s are ready for clinical review.\n\n", dept, labNumber)
	if ev.PatientName != "" {
		fmt.Fprintf(&b, "Patient: %s\n", ev.PatientName)
	}
	fmt.Fprintf(&b, "Record: %s\n", ev.ID)
	fmt.Fprintf(&b, "Posted: %s\n", ev.At.Format("2006-01-02 15:04 MST"))

	return email.Message{
		Subject: fmt.Sprintf("%s results ready: %s", dept, labNumber),
		Body:    b.String(),
	}
}
