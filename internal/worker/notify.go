package worker

// SummaryNotifyMessage is pushed over redis pub/sub to the requesting
// recruiter's WebSocket feed when summary generation finishes. Field names
// match the frontend parser.
type SummaryNotifyMessage struct {
	Status        string `json:"status"`
	ApplicationID uint   `json:"application_id"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message,omitempty"`
}
