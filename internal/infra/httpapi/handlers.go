package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/abdulrahman-963/new-pluta/internal/domain/entity"
	"github.com/abdulrahman-963/new-pluta/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerTenantID = "X-Tenant-ID"
	headerBranchID = "X-Branch-ID"

	multipartMemory = 32 << 20
	// room for the form fields around an image part
	multipartOverhead = 1 << 20
)

type VideoUploader interface {
	Execute(ctx context.Context, in usecase.UploadVideoInput) (*entity.Video, error)
}

type VideoQuerier interface {
	Get(ctx context.Context, scope entity.Scope, id uuid.UUID) (*entity.Video, error)
	Status(ctx context.Context, scope entity.Scope, id uuid.UUID) (entity.VideoStatus, error)
	List(ctx context.Context, scope entity.Scope, limit, offset int) ([]*entity.Video, error)
	Frames(ctx context.Context, scope entity.Scope, id uuid.UUID) ([]*entity.Frame, error)
}

type ImageAnalyzer interface {
	Execute(ctx context.Context, in usecase.AnalyzeImageInput) ([]entity.DetectionResult, error)
}

type Handler struct {
	uploader       VideoUploader
	querier        VideoQuerier
	analyzer       ImageAnalyzer
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewHandler(uploader VideoUploader, querier VideoQuerier, analyzer ImageAnalyzer, maxUploadBytes int64, logger *zap.Logger) *Handler {
	return &Handler{
		uploader:       uploader,
		querier:        querier,
		analyzer:       analyzer,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Upload accepts a multipart video and answers 202 once the run is queued.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromHeaders(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "file too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, entity.ErrEmptyUpload)
		return
	}
	defer file.Close()

	zoneID, zerr := strconv.ParseInt(r.FormValue("zoneId"), 10, 64)
	cameraID, cerr := strconv.ParseInt(r.FormValue("cameraId"), 10, 64)
	if zerr != nil || cerr != nil {
		h.writeError(w, entity.ErrInvalidReference)
		return
	}

	video, err := h.uploader.Execute(r.Context(), usecase.UploadVideoInput{
		Scope:       scope,
		ZoneID:      zoneID,
		CameraID:    cameraID,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{Success: true, VideoID: video.ID.String()})
}

// AnalyzeImage runs the zone analysis on one uploaded image and answers with
// the per-table results. Nothing is stored.
func (h *Handler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromHeaders(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, usecase.MaxImageBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, entity.ErrImageTooLarge)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		h.writeError(w, entity.ErrEmptyUpload)
		return
	}
	defer file.Close()

	zoneID, zerr := strconv.ParseInt(r.FormValue("zoneId"), 10, 64)
	cameraID, cerr := strconv.ParseInt(r.FormValue("cameraId"), 10, 64)
	if zerr != nil || cerr != nil {
		h.writeError(w, entity.ErrInvalidReference)
		return
	}

	thresholds, err := thresholdsFromForm(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	results, err := h.analyzer.Execute(r.Context(), usecase.AnalyzeImageInput{
		Scope:       scope,
		ZoneID:      zoneID,
		CameraID:    cameraID,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		Thresholds:  thresholds,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]analysisResponse, 0, len(results))
	for _, res := range results {
		out = append(out, toAnalysisResponse(res))
	}
	writeJSON(w, http.StatusOK, out)
}

func thresholdsFromForm(r *http.Request) (entity.Thresholds, error) {
	t := usecase.DefaultImageThresholds
	for field, dst := range map[string]*float64{
		"confidenceThreshold":     &t.Frame,
		"zoneConfidenceThreshold": &t.Zone,
	} {
		raw := r.FormValue(field)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return t, fmt.Errorf("%w: %s=%q", entity.ErrInvalidThreshold, field, raw)
		}
		*dst = v
	}
	return t, nil
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	status, err := h.querier.Status(r.Context(), scope, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: string(status)})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	video, err := h.querier.Get(r.Context(), scope, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVideoResponse(video))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromHeaders(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	videos, err := h.querier.List(r.Context(), scope, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]videoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, toVideoResponse(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Frames(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.scopeAndID(w, r)
	if !ok {
		return
	}
	frames, err := h.querier.Frames(r.Context(), scope, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]frameResponse, 0, len(frames))
	for _, f := range frames {
		out = append(out, toFrameResponse(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) scopeAndID(w http.ResponseWriter, r *http.Request) (entity.Scope, uuid.UUID, bool) {
	scope, err := scopeFromHeaders(r)
	if err != nil {
		h.writeError(w, err)
		return entity.Scope{}, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid video id"})
		return entity.Scope{}, uuid.Nil, false
	}
	return scope, id, true
}

// scopeFromHeaders reads the tenant and branch set by the gateway.
func scopeFromHeaders(r *http.Request) (entity.Scope, error) {
	tenantID, terr := strconv.ParseInt(r.Header.Get(headerTenantID), 10, 64)
	branchID, berr := strconv.ParseInt(r.Header.Get(headerBranchID), 10, 64)
	if terr != nil || berr != nil {
		return entity.Scope{}, entity.ErrInvalidScope
	}
	scope := entity.Scope{TenantID: tenantID, BranchID: branchID}
	return scope, scope.Validate()
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrEmptyUpload),
		errors.Is(err, entity.ErrUnsupportedContentType),
		errors.Is(err, entity.ErrInvalidScope),
		errors.Is(err, entity.ErrInvalidReference),
		errors.Is(err, entity.ErrUnsupportedImageType),
		errors.Is(err, entity.ErrInvalidThreshold):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, entity.ErrImageTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()})
	case errors.Is(err, entity.ErrVideoNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: entity.ErrVideoNotFound.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
