package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"inkwell/internal/httpkit"
	"inkwell/internal/job"
	"inkwell/internal/pkg/errors"
	"inkwell/internal/report"
)

// maxPayloadBytes bounds accepted submission bodies.
const maxPayloadBytes = 10 << 20 // 10 MiB

// PostGenerate accepts raw HTML in the request body and submits it as a
// render job. Identical bytes resolve to the already-tracked job.
func (h *Handler) PostGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "failed to read request body", nil)
		return
	}

	res, err := h.svc.Submit(ctx, body)
	if err != nil {
		httpkit.WriteCodedErr(w, err)
		return
	}

	status := http.StatusAccepted
	if res.Cached {
		status = http.StatusOK
	}
	httpkit.WriteJSON(w, status, res)
}

// ReportRequest is the JSON body of POST /reports.
type ReportRequest struct {
	report.Params
}

// PostReport builds a chart/QR report document and submits it through the
// same path as raw HTML, so identical reports dedupe identically.
func (h *Handler) PostReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ReportRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	html, err := report.BuildHTML(req.Params)
	if err != nil {
		httpkit.WriteCodedErr(w, err)
		return
	}

	res, err := h.svc.Submit(ctx, html)
	if err != nil {
		httpkit.WriteCodedErr(w, err)
		return
	}

	status := http.StatusAccepted
	if res.Cached {
		status = http.StatusOK
	}
	httpkit.WriteJSON(w, status, res)
}

// StatusResponse is the body of GET /status/{jobId}.
type StatusResponse struct {
	JobID     string     `json:"job_id"`
	Status    job.Status `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// GetStatus reads the job record; it never exposes render internals beyond
// the recorded diagnostic.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")

	rec, err := h.svc.Status(ctx, jobID)
	if err != nil {
		httpkit.WriteCodedErr(w, err)
		return
	}

	resp := StatusResponse{
		JobID:     rec.ID,
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if rec.Status == job.StatusFailed {
		resp.Error = rec.Error
	}
	httpkit.WriteJSON(w, 200, resp)
}

// Download streams the finished artifact. Until the job is DONE this is a
// 409; a DONE record without its artifact is a 500 that names the
// inconsistency.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")

	rc, contentType, size, err := h.svc.Result(ctx, jobID)
	if err != nil {
		if errors.IsInconsistent(err) {
			h.log.FromContext(ctx).Error("artifact missing for done job", "job_id", jobID)
		}
		httpkit.WriteCodedErr(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+jobID+`.pdf"`)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		h.log.FromContext(ctx).Warn("artifact stream interrupted",
			"job_id", jobID,
			"error", err.Error(),
		)
	}
}
