package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/SDB-Intelligence/internal/application/extraction"
	domainRecord "github.com/turtacn/SDB-Intelligence/internal/domain/record"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/internal/intelligence/engine"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
	"github.com/turtacn/SDB-Intelligence/pkg/types/common"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

// ExtractionService is the part of the extraction application service the
// HTTP API needs.
type ExtractionService interface {
	Extract(ctx context.Context, profile, text string) (*engine.Result, error)
	Store(ctx context.Context, res *engine.Result, req extraction.StoreRequest) (*sdb.StoredRecord, error)
	GetRecord(ctx context.Context, id string) (*sdb.StoredRecord, error)
	ListRecords(ctx context.Context, cas string, opts ...domainRecord.QueryOption) ([]*sdb.StoredRecord, int64, error)
	Profiles() []string
}

// ExtractionHandler serves synchronous extraction and stored records.
type ExtractionHandler struct {
	svc    ExtractionService
	logger logging.Logger
}

// NewExtractionHandler creates an ExtractionHandler.
func NewExtractionHandler(svc ExtractionService, logger logging.Logger) *ExtractionHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ExtractionHandler{svc: svc, logger: logger}
}

// ExtractRequest is the body of POST /api/v1/extract.
type ExtractRequest struct {
	Profile  string `json:"profile"`
	Text     string `json:"text"`
	Persist  bool   `json:"persist,omitempty"`
	Producer string `json:"producer,omitempty"`
}

// ExtractResponse is the engine result plus the stored record id when the
// request asked for persistence.
type ExtractResponse struct {
	*engine.Result
	RecordID string `json:"record_id,omitempty"`
}

// Extract handles POST /api/v1/extract.
func (h *ExtractionHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	req.Profile = strings.TrimSpace(req.Profile)
	if req.Profile == "" {
		writeAppError(w, errors.New(errors.ErrCodeValidation, "profile is required"))
		return
	}

	res, err := h.svc.Extract(r.Context(), req.Profile, req.Text)
	if err != nil {
		writeAppError(w, err)
		return
	}
	resp := ExtractResponse{Result: res}
	if req.Persist {
		stored, err := h.svc.Store(r.Context(), res, extraction.StoreRequest{
			Producer: req.Producer,
			Source:   "api",
		})
		if err != nil {
			h.logger.Error("store extracted record", logging.Profile(res.Profile), logging.Err(err))
			writeAppError(w, err)
			return
		}
		withStored := *res
		withStored.Record = stored.Record
		resp = ExtractResponse{Result: &withStored, RecordID: stored.ID}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Profiles handles GET /api/v1/profiles.
func (h *ExtractionHandler) Profiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"profiles": h.svc.Profiles()})
}

// GetRecord handles GET /api/v1/records/{recordID}.
func (h *ExtractionHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "recordID")
	rec, err := h.svc.GetRecord(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RecordListResponse is a page of stored records.
type RecordListResponse struct {
	Items []*sdb.StoredRecord `json:"items"`
	common.Pagination
}

// ListRecords handles GET /api/v1/records.  Supported filters are cas and
// profile.
func (h *ExtractionHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	page := parsePagination(r)
	opts := []domainRecord.QueryOption{domainRecord.WithPagination(page.Offset(), page.PageSize)}
	if profile := r.URL.Query().Get("profile"); profile != "" {
		opts = append(opts, domainRecord.WithProfile(profile))
	}

	items, total, err := h.svc.ListRecords(r.Context(), r.URL.Query().Get("cas"), opts...)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if items == nil {
		items = []*sdb.StoredRecord{}
	}
	page.Total = total
	writeJSON(w, http.StatusOK, RecordListResponse{Items: items, Pagination: page})
}

//Personal.AI order the ending
