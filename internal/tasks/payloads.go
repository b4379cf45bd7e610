package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type constants keep the queue producer and consumer in sync.
const (
	TypeResumeSummary = "resume:summarize"
)

// ResumeSummaryPayload identifies which application's resume to analyze.
type ResumeSummaryPayload struct {
	ApplicationID uint   `json:"application_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewResumeSummaryTask builds a summary-generation task.
func NewResumeSummaryTask(applicationID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResumeSummaryPayload{
		ApplicationID: applicationID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumeSummary, payload), nil
}
