package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

const jobEventSource = "sdb-api"

// JobHandler accepts extraction jobs and queues them for the worker.
type JobHandler struct {
	publisher kafka.Publisher
	profiles  func() []string
	logger    logging.Logger
	now       func() time.Time
}

// NewJobHandler creates a JobHandler.  profiles lists the accepted profile
// identifiers; jobs for any other profile are rejected before queueing.
func NewJobHandler(publisher kafka.Publisher, profiles func() []string, logger logging.Logger) *JobHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &JobHandler{publisher: publisher, profiles: profiles, logger: logger, now: time.Now}
}

// JobAccepted is the response to a queued job.
type JobAccepted struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Submit handles POST /api/v1/jobs.
func (h *JobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var job sdb.Job
	if err := decodeJSON(r, &job); err != nil {
		writeAppError(w, err)
		return
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = h.now().UTC()
	}
	if msg := job.Validate(); msg != "" {
		writeAppError(w, errors.New(errors.ErrCodeJobInvalid, msg).WithDetail(job.ID))
		return
	}
	if !h.supported(job.Profile) {
		writeAppError(w, errors.UnsupportedProfile(job.Profile))
		return
	}

	msg, err := kafka.NewJobRequestedMessage(jobEventSource, &job)
	if err == nil {
		err = h.publisher.Publish(r.Context(), msg)
	}
	if err != nil {
		h.logger.Error("queue job", logging.JobID(job.ID), logging.Err(err))
		writeAppError(w, errors.Wrap(err, errors.ErrCodeJobPublishFailed, "queue job"))
		return
	}

	h.logger.Info("job queued", logging.JobID(job.ID), logging.Profile(job.Profile))
	writeJSON(w, http.StatusAccepted, JobAccepted{JobID: job.ID, Status: string(sdb.JobStatusPending)})
}

func (h *JobHandler) supported(profile string) bool {
	if h.profiles == nil {
		return true
	}
	for _, p := range h.profiles() {
		if p == profile {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
