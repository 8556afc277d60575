package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"ragcore/internal/errs"
	"ragcore/internal/model"
	"ragcore/internal/objectstore"
	"ragcore/internal/validation"
)

// jobSubmittedResponse is the accepted-async-job envelope shared by every
// ingest endpoint: a caller polls status_url until the Job Record reaches a
// terminal state.
type jobSubmittedResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	StatusURL string `json:"status_url"`
}

func newJobSubmittedResponse(jobID string) jobSubmittedResponse {
	return jobSubmittedResponse{
		JobID:     jobID,
		Status:    string(model.JobQueued),
		StatusURL: "/ingest/jobs/" + jobID,
	}
}

type ingestWebRequest struct {
	URL         string `json:"url"`
	Deep        bool   `json:"deep"`
	MaxDepth    int    `json:"max_depth"`
	Tenant      string `json:"tenant"`
	SourceGroup string `json:"source_group"`
}

func (s *Server) handleIngestWeb(w http.ResponseWriter, r *http.Request) {
	var req ingestWebRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errs.New(errs.ConfigInvalid, "malformed request body"))
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, errs.New(errs.ConfigInvalid, "url is required"))
		return
	}
	tenant, sourceGroup, err := s.validatePartition(w, req.Tenant, req.SourceGroup)
	if err != nil {
		return
	}

	options := model.SourceOptions{}
	if req.Deep {
		options.CrawlDepth = 1
		if req.MaxDepth > 0 {
			options.MaxDepth = req.MaxDepth
		}
	}
	descriptor := model.SourceDescriptor{
		Kind:        model.SourceWebURL,
		Locator:     req.URL,
		Tenant:      tenant,
		SourceGroup: sourceGroup,
		Options:     options,
	}
	s.enqueueIngest(w, r, descriptor)
}

type ingestDriveRequest struct {
	DriveFileID string `json:"drive_file_id"`
	Tenant      string `json:"tenant"`
	SourceGroup string `json:"source_group"`
}

func (s *Server) handleIngestDrive(w http.ResponseWriter, r *http.Request) {
	var req ingestDriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errs.New(errs.ConfigInvalid, "malformed request body"))
		return
	}
	if req.DriveFileID == "" {
		respondError(w, http.StatusBadRequest, errs.New(errs.ConfigInvalid, "drive_file_id is required"))
		return
	}
	tenant, sourceGroup, err := s.validatePartition(w, req.Tenant, req.SourceGroup)
	if err != nil {
		return
	}

	descriptor := model.SourceDescriptor{
		Kind:        model.SourceDriveFile,
		Locator:     req.DriveFileID,
		Tenant:      tenant,
		SourceGroup: sourceGroup,
	}
	s.enqueueIngest(w, r, descriptor)
}

// validatePartition validates tenant/source_group, writing a 400 response
// and returning a non-nil error if either is malformed.
func (s *Server) validatePartition(w http.ResponseWriter, rawTenant, rawSourceGroup string) (tenant, sourceGroup string, err error) {
	tenant, err = validation.Tenant(rawTenant)
	if err != nil {
		respondError(w, http.StatusBadRequest, errs.Wrap(errs.ConfigInvalid, "tenant", err))
		return "", "", err
	}
	sourceGroup, err = validation.SourceGroup(rawSourceGroup)
	if err != nil {
		respondError(w, http.StatusBadRequest, errs.Wrap(errs.ConfigInvalid, "source_group", err))
		return "", "", err
	}
	return tenant, sourceGroup, nil
}

// enqueueIngest submits descriptor to the Job Queue and writes the
// accepted-job response, or an error response on failure.
func (s *Server) enqueueIngest(w http.ResponseWriter, r *http.Request, descriptor model.SourceDescriptor) {
	jobID, err := s.Queue.Enqueue(r.Context(), descriptor, sourceFingerprint(descriptor), s.DedupeTTL)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusAccepted, newJobSubmittedResponse(jobID))
}

func (s *Server) handleIngestUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, errs.Wrap(errs.ConfigInvalid, "parse multipart form", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, errs.Wrap(errs.ConfigInvalid, "missing file part", err))
		return
	}
	defer file.Close()

	if s.ObjectStore == nil {
		respondError(w, http.StatusServiceUnavailable, errs.New(errs.DependencyUnavailable, "object storage not configured"))
		return
	}

	tenant, sourceGroup, err := s.validatePartition(w, r.FormValue("tenant"), r.FormValue("source_group"))
	if err != nil {
		return
	}
	key := uuid.NewString() + "-" + validation.FileName(header.Filename)
	if _, err := s.ObjectStore.Put(r.Context(), key, file, objectstore.PutOptions{ContentType: header.Header.Get("Content-Type")}); err != nil {
		respondError(w, http.StatusInternalServerError, errs.Wrap(errs.Internal, "store uploaded blob", err))
		return
	}

	descriptor := model.SourceDescriptor{
		Kind:        model.SourceUploadedBlob,
		Locator:     key,
		Tenant:      tenant,
		SourceGroup: sourceGroup,
	}
	s.enqueueIngest(w, r, descriptor)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	job, err := s.Queue.Inspect(r.Context(), jobID)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

type readingsSaveRequest struct {
	URL    string `json:"url"`
	Tenant string `json:"tenant"`
}

func (s *Server) handleReadingsSave(w http.ResponseWriter, r *http.Request) {
	var req readingsSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errs.New(errs.ConfigInvalid, "malformed request body"))
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, errs.New(errs.ConfigInvalid, "url is required"))
		return
	}
	reading, err := s.Readings.Save(r.Context(), req.URL, req.Tenant)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusCreated, reading)
}

func (s *Server) handleReadingsList(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	readings, err := s.Readings.List(r.Context(), tenant, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"readings": readings})
}

func (s *Server) handleReadingsGet(w http.ResponseWriter, r *http.Request) {
	reading, err := s.Readings.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, reading)
}

type queryRequest struct {
	Query  string             `json:"query"`
	K      int                `json:"k"`
	Mode   model.RetrieveMode `json:"mode"`
	Filter model.Filter       `json:"filter"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errs.New(errs.ConfigInvalid, "malformed request body"))
		return
	}
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, errs.New(errs.ConfigInvalid, "query is required"))
		return
	}
	if req.Mode == "" {
		req.Mode = model.ModeHybrid
	}
	results, warnings, err := s.Retrieval.Query(r.Context(), req.Query, req.K, req.Filter, req.Mode)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": results, "warnings": warnings})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]any{"error_code": string(errs.KindOf(err)), "message": err.Error()})
}

func statusFromError(err error) int {
	switch errs.KindOf(err) {
	case errs.ConfigInvalid:
		return http.StatusBadRequest
	case errs.IndexMissing:
		return http.StatusNotFound
	case errs.UpsertConflict:
		return http.StatusConflict
	case errs.DependencyUnavailable, errs.DependencyDegraded:
		return http.StatusServiceUnavailable
	case errs.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case errs.QueueFull:
		return http.StatusServiceUnavailable
	default:
		var e *errs.E
		if errors.As(err, &e) {
			return http.StatusInternalServerError
		}
		return http.StatusInternalServerError
	}
}
