package notify

import (
	"fmt"

	"careerbridge/internal/database"
)

// SMS templates for lifecycle transitions. Snapshot fields on the application
// are used so the text matches what the student actually applied to, even if
// the job was edited afterwards.

func shortlistedMessage(app *database.Application) string {
	return fmt.Sprintf(
		"Congratulations! You have been shortlisted for %s at %s. Log in to CareerBridge to check the details and next steps.",
		orDefault(app.JobTitle, "a position"), orDefault(app.CompanyName, "A company"))
}

func selectedMessage(app *database.Application) string {
	return fmt.Sprintf(
		"Great news! You have been SELECTED for %s at %s. Congratulations on your success! Log in to CareerBridge for more details.",
		orDefault(app.JobTitle, "a position"), orDefault(app.CompanyName, "A company"))
}

func interviewScheduledMessage(app *database.Application, iv *database.Interview) string {
	return fmt.Sprintf(
		"Interview Scheduled: %s interview for %s at %s on %s at %s. Location: %s. Log in to CareerBridge for details.",
		orDefault(iv.Type, "an interview"),
		orDefault(app.JobTitle, "a position"),
		orDefault(app.CompanyName, "A company"),
		iv.ScheduledAt.Format("02 Jan, 2006"),
		iv.ScheduledAt.Format("15:04"),
		orDefault(iv.Location, "to be confirmed"))
}

func interviewResultMessage(app *database.Application, iv *database.Interview) string {
	jobTitle := orDefault(app.JobTitle, "a position")
	company := orDefault(app.CompanyName, "A company")
	if iv.Result == database.ResultPass {
		return fmt.Sprintf(
			"Congratulations! You have passed the interview for %s at %s. Log in to CareerBridge for next steps.",
			jobTitle, company)
	}
	return fmt.Sprintf(
		"Interview Result: Your interview for %s at %s has been completed. Please log in to CareerBridge to check the details.",
		jobTitle, company)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
