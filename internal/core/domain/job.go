package domain

import "time"

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

// QuestionnaireJob tracks an asynchronously processed question sheet.
type QuestionnaireJob struct {
	ID        string             `json:"id"`
	Filename  string             `json:"filename"`
	Status    JobStatus          `json:"status"`
	Rows      []QuestionnaireRow `json:"rows,omitempty"`
	Results   []BatchResultRow   `json:"results,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
