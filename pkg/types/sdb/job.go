package sdb

import (
	"strings"
	"time"
)

// JobStatus tracks an extraction job through the worker.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is an extraction request submitted through the API or the request
// topic.  Exactly one of DownloadURL and DocumentKey names the text to
// extract from.
type Job struct {
	ID            string    `json:"id"`
	Profile       string    `json:"profile"`
	DownloadURL   string    `json:"download_url,omitempty"`
	DocumentKey   string    `json:"document_key,omitempty"`
	ResultURL     string    `json:"result_url,omitempty"`
	SecurityToken string    `json:"security_token,omitempty"`
	Producer      string    `json:"producer,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Validate reports the first missing or conflicting attribute, or "" when the
// job is well formed.
func (j *Job) Validate() string {
	switch {
	case strings.TrimSpace(j.ID) == "":
		return "id is required"
	case strings.TrimSpace(j.Profile) == "":
		return "profile is required"
	case j.DownloadURL == "" && j.DocumentKey == "":
		return "one of download_url or document_key is required"
	case j.DownloadURL != "" && j.DocumentKey != "":
		return "download_url and document_key are mutually exclusive"
	}
	return ""
}

// JobResult is the outcome of a job, delivered to the result topic and to the
// job's callback URL.
type JobResult struct {
	JobID         string    `json:"job_id"`
	Profile       string    `json:"profile"`
	Status        JobStatus `json:"status"`
	RecordID      string    `json:"record_id,omitempty"`
	Record        Record    `json:"record,omitempty"`
	Fallbacks     []string  `json:"fallbacks,omitempty"`
	ResultKey     string    `json:"result_key,omitempty"`
	ResultLink    string    `json:"result_link,omitempty"`
	Error         string    `json:"error,omitempty"`
	SecurityToken string    `json:"security_token,omitempty"`
	CompletedAt   time.Time `json:"completed_at"`
}

// StoredRecord is a persisted extraction result.
type StoredRecord struct {
	ID               string    `json:"id"`
	JobID            string    `json:"job_id,omitempty"`
	Profile          string    `json:"profile"`
	CAS              string    `json:"cas,omitempty"`
	Name             string    `json:"name,omitempty"`
	Producer         string    `json:"producer,omitempty"`
	Source           string    `json:"source,omitempty"`
	TableVersion     string    `json:"table_version,omitempty"`
	ReferenceVersion string    `json:"reference_version,omitempty"`
	Record           Record    `json:"record"`
	CreatedAt        time.Time `json:"created_at"`
}

//Personal.AI order the ending
