package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"careerbridge/internal/database"
)

type fakeSender struct {
	params []*twilioapi.CreateMessageParams
	err    error
}

func (f *fakeSender) CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioapi.ApiV2010Message{Sid: &sid}, nil
}

func testDispatcher(sender SMSSender) *SMSDispatcher {
	return &SMSDispatcher{
		sender:             sender,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		enabled:            true,
		fromNumber:         "+15005550006",
		defaultCountryCode: "+91",
	}
}

func TestDispatchSendsNormalizedNumber(t *testing.T) {
	sender := &fakeSender{}
	d := testDispatcher(sender)
	student := &database.Student{Phone: "9876543210"}

	ok := d.Shortlisted(context.Background(), student, &database.Application{JobTitle: "SRE", CompanyName: "Initech"})
	if !ok {
		t.Fatalf("dispatch reported failure")
	}
	if len(sender.params) != 1 {
		t.Fatalf("messages sent = %d, want 1", len(sender.params))
	}
	p := sender.params[0]
	if p.To == nil || *p.To != "+919876543210" {
		t.Fatalf("to = %v, want +919876543210", p.To)
	}
	if p.From == nil || *p.From != "+15005550006" {
		t.Fatalf("from = %v", p.From)
	}
}

func TestDispatchSkipsMissingOrInvalidPhone(t *testing.T) {
	sender := &fakeSender{}
	d := testDispatcher(sender)
	app := &database.Application{}

	if d.Selected(context.Background(), &database.Student{}, app) {
		t.Fatalf("dispatch succeeded without a phone number")
	}
	if d.Selected(context.Background(), &database.Student{Phone: "not-a-number"}, app) {
		t.Fatalf("dispatch succeeded with an invalid phone number")
	}
	if len(sender.params) != 0 {
		t.Fatalf("messages sent = %d, want 0", len(sender.params))
	}
}

func TestDispatchDisabledReturnsFalseWithoutError(t *testing.T) {
	d := testDispatcher(nil)
	d.enabled = false

	ok := d.Selected(context.Background(), &database.Student{Phone: "9876543210"}, &database.Application{})
	if ok {
		t.Fatalf("disabled dispatcher reported success")
	}
}

func TestDispatchGatewayFailureReturnsFalse(t *testing.T) {
	sender := &fakeSender{err: errors.New("twilio 500")}
	d := testDispatcher(sender)

	ok := d.InterviewResult(context.Background(),
		&database.Student{Phone: "9876543210"},
		&database.Application{},
		&database.Interview{Result: database.ResultPass})
	if ok {
		t.Fatalf("gateway failure reported success")
	}
}
