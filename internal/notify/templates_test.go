package notify

import (
	"strings"
	"testing"
	"time"

	"careerbridge/internal/database"
)

func testApplication() *database.Application {
	return &database.Application{
		JobTitle:    "Backend Engineer",
		CompanyName: "Initech",
	}
}

func TestShortlistedMessage(t *testing.T) {
	msg := shortlistedMessage(testApplication())
	want := "Congratulations! You have been shortlisted for Backend Engineer at Initech. Log in to CareerBridge to check the details and next steps."
	if msg != want {
		t.Fatalf("message = %q, want %q", msg, want)
	}
}

func TestSelectedMessage(t *testing.T) {
	msg := selectedMessage(testApplication())
	if !strings.Contains(msg, "SELECTED for Backend Engineer at Initech") {
		t.Fatalf("message = %q", msg)
	}
}

func TestInterviewScheduledMessageFormatsDateAndTime(t *testing.T) {
	iv := &database.Interview{
		Type:        "Technical",
		Location:    "Main Campus",
		ScheduledAt: time.Date(2026, 3, 5, 14, 30, 0, 0, time.Local),
	}
	msg := interviewScheduledMessage(testApplication(), iv)
	for _, want := range []string{"Technical interview", "05 Mar, 2026", "14:30", "Location: Main Campus"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestInterviewResultMessageDependsOnOutcome(t *testing.T) {
	app := testApplication()

	pass := interviewResultMessage(app, &database.Interview{Result: database.ResultPass})
	if !strings.Contains(pass, "passed the interview") {
		t.Fatalf("pass message = %q", pass)
	}

	fail := interviewResultMessage(app, &database.Interview{Result: database.ResultFail})
	if strings.Contains(fail, "passed") {
		t.Fatalf("fail message mentions passing: %q", fail)
	}
	if !strings.Contains(fail, "has been completed") {
		t.Fatalf("fail message = %q", fail)
	}
}

func TestTemplatesFallBackOnEmptySnapshots(t *testing.T) {
	msg := shortlistedMessage(&database.Application{})
	if !strings.Contains(msg, "a position") || !strings.Contains(msg, "A company") {
		t.Fatalf("fallbacks missing: %q", msg)
	}
}
