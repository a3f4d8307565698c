package daemon

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"vidtools/internal/api"
	"vidtools/internal/logging"
	"vidtools/internal/pipeline"
	"vidtools/internal/services"
	"vidtools/internal/textutil"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before parts spill to temporary files.
const multipartMemory = 32 << 20

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".avi": true, ".webm": true, ".m4v": true,
	".mpg": true, ".mpeg": true, ".flv": true, ".wmv": true, ".3gp": true, ".ts": true,
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".bmp": true,
}

// handleOperation parses the multipart upload for op, saves the files and
// runs the job within the request.
func (s *apiServer) handleOperation(op pipeline.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			s.writeFailure(w, invalidUpload(op, "failed to parse upload: file may be too large"), "")
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		jobID := strings.TrimSpace(r.FormValue("progressId"))
		if jobID == "" {
			jobID = uuid.NewString()
		} else if _, err := uuid.Parse(jobID); err != nil {
			s.writeFailure(w, invalidUpload(op, "progressId must be a UUID"), "")
			return
		}

		req, err := s.buildRequest(r.MultipartForm, op, jobID)
		if err != nil {
			s.writeFailure(w, err, jobID)
			return
		}

		result, err := s.daemon.runner.Run(r.Context(), req)
		if err != nil {
			s.writeFailure(w, err, jobID)
			return
		}
		s.writeJSON(w, http.StatusOK, api.FromResult(result))
	}
}

// buildRequest checks options, counts and extensions before anything is
// written, then saves the uploads.
func (s *apiServer) buildRequest(form *multipart.Form, op pipeline.Operation, jobID string) (pipeline.Request, error) {
	req := pipeline.Request{
		JobID:     jobID,
		Operation: op,
		Quality:   formValue(form, "quality"),
		Format:    formValue(form, "format"),
		Position:  formValue(form, "position"),
	}
	if err := pipeline.CheckOptions(req); err != nil {
		return req, invalidUpload(op, err.Error())
	}

	var videos []*multipart.FileHeader
	if op == pipeline.OpMerge {
		videos = form.File["videos"]
		if len(videos) < 2 {
			return req, invalidUpload(op, "at least two videos are required for merging")
		}
		if limit := s.cfg.Server.MaxMergeInputs; limit > 0 && len(videos) > limit {
			return req, invalidUpload(op, fmt.Sprintf("at most %d videos can be merged", limit))
		}
	} else {
		files := form.File["video"]
		if len(files) == 0 {
			return req, invalidUpload(op, "no video file uploaded")
		}
		videos = files[:1]
	}
	for _, header := range videos {
		if !videoExtensions[strings.ToLower(filepath.Ext(header.Filename))] {
			return req, invalidUpload(op, fmt.Sprintf("unsupported video type %q", header.Filename))
		}
	}

	var image *multipart.FileHeader
	if op == pipeline.OpWatermark {
		images := form.File["watermark"]
		if len(images) == 0 {
			return req, invalidUpload(op, "both video and watermark image are required")
		}
		image = images[0]
		if !imageExtensions[strings.ToLower(filepath.Ext(image.Filename))] {
			return req, invalidUpload(op, fmt.Sprintf("unsupported image type %q", image.Filename))
		}
	}

	var saved []pipeline.Asset
	discard := func() {
		for _, asset := range saved {
			_ = os.Remove(asset.Path)
		}
	}
	for _, header := range videos {
		asset, err := s.saveUpload(header)
		if err != nil {
			discard()
			return req, services.Wrap(services.ErrTransformFailed, "upload", string(op), "failed to save upload", err)
		}
		saved = append(saved, asset)
	}
	req.Inputs = saved
	if image != nil {
		asset, err := s.saveUpload(image)
		if err != nil {
			discard()
			return req, services.Wrap(services.ErrTransformFailed, "upload", string(op), "failed to save upload", err)
		}
		req.Watermark = &asset
	}
	return req, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// saveUpload copies one multipart file into the upload directory as
// <unixms>-<token>-<sanitized name>.
func (s *apiServer) saveUpload(header *multipart.FileHeader) (pipeline.Asset, error) {
	src, err := header.Open()
	if err != nil {
		return pipeline.Asset{}, fmt.Errorf("open part: %w", err)
	}
	defer src.Close()

	now := time.Now()
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	name := fmt.Sprintf("%d-%s-%s", now.UnixMilli(), token, textutil.SafeBaseName(header.Filename, "upload"))
	path := filepath.Join(s.cfg.Paths.UploadDir, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return pipeline.Asset{}, fmt.Errorf("create upload: %w", err)
	}
	written, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		if copyErr == nil {
			copyErr = closeErr
		}
		return pipeline.Asset{}, fmt.Errorf("write upload: %w", copyErr)
	}

	s.logger.Debug("upload saved",
		logging.String("name", header.Filename),
		logging.String("path", path),
		logging.Int64("size_bytes", written),
	)
	return pipeline.Asset{
		Path:      path,
		Name:      header.Filename,
		MIME:      header.Header.Get("Content-Type"),
		Size:      written,
		CreatedAt: now,
		Owned:     true,
	}, nil
}

func invalidUpload(op pipeline.Operation, message string) error {
	return services.Wrap(services.ErrInvalidRequest, "upload", string(op), message, nil)
}

func (s *apiServer) writeFailure(w http.ResponseWriter, err error, jobID string) {
	payload, status := api.FromError(err, jobID)
	s.writeJSON(w, status, payload)
}
