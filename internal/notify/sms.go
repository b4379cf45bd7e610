package notify

import (
	"context"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"careerbridge/internal/config"
	"careerbridge/internal/database"
)

// SMSSender is the minimal Twilio surface used by the dispatcher, kept as an
// interface so tests can fake the gateway.
type SMSSender interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// SMSDispatcher sends lifecycle SMS notifications through Twilio. Dispatch is
// strictly best-effort: every failure path logs and returns false, never an
// error, because the primary state transition has already committed.
type SMSDispatcher struct {
	sender             SMSSender
	logger             *slog.Logger
	enabled            bool
	fromNumber         string
	defaultCountryCode string
}

// NewSMSDispatcher builds the dispatcher from config. When SMS is disabled no
// Twilio client is created at all.
func NewSMSDispatcher(cfg config.SMSConfig, logger *slog.Logger) *SMSDispatcher {
	d := &SMSDispatcher{
		logger:             logger,
		enabled:            cfg.Enabled,
		fromNumber:         cfg.FromNumber,
		defaultCountryCode: cfg.DefaultCountryCode,
	}
	if cfg.Enabled {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
		d.sender = client.Api
	}
	return d
}

// Shortlisted notifies the student they were shortlisted.
func (d *SMSDispatcher) Shortlisted(ctx context.Context, student *database.Student, app *database.Application) bool {
	return d.send(ctx, student, shortlistedMessage(app))
}

// Selected notifies the student they were selected.
func (d *SMSDispatcher) Selected(ctx context.Context, student *database.Student, app *database.Application) bool {
	return d.send(ctx, student, selectedMessage(app))
}

// InterviewScheduled notifies the student about a new interview slot.
func (d *SMSDispatcher) InterviewScheduled(ctx context.Context, student *database.Student, app *database.Application, iv *database.Interview) bool {
	return d.send(ctx, student, interviewScheduledMessage(app, iv))
}

// InterviewResult notifies the student their interview was marked.
func (d *SMSDispatcher) InterviewResult(ctx context.Context, student *database.Student, app *database.Application, iv *database.Interview) bool {
	return d.send(ctx, student, interviewResultMessage(app, iv))
}

func (d *SMSDispatcher) send(_ context.Context, student *database.Student, message string) bool {
	log := d.logger.With(slog.Uint64("student_id", uint64(student.ID)))

	if student.Phone == "" {
		log.Warn("sms skipped: student has no phone number")
		return false
	}

	to := NormalizePhone(student.Phone, d.defaultCountryCode)
	if to == "" {
		log.Warn("sms skipped: invalid phone number", slog.String("phone", student.Phone))
		return false
	}

	if !d.enabled || d.sender == nil {
		log.Info("sms disabled, message not sent")
		return false
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(d.fromNumber)
	params.SetBody(message)

	resp, err := d.sender.CreateMessage(params)
	if err != nil {
		log.Error("sms dispatch failed", slog.Any("error", err))
		return false
	}
	if resp.Sid != nil {
		log.Info("sms sent", slog.String("sid", *resp.Sid))
	}
	return true
}
