package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/tgienger/planx/internal/media"
)

const multipartMemory = 32 << 20

// readUploads parses a multipart body and returns its mediaFiles parts.
// It answers 400 or 413 itself and returns false on failure. Callers
// must defer r.MultipartForm.RemoveAll when it succeeds.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]media.Upload, bool) {
	return s.parseUploads(w, r, true)
}

// readOptionalUploads is readUploads for forms that may carry no files
func (s *Server) readOptionalUploads(w http.ResponseWriter, r *http.Request) ([]media.Upload, bool) {
	return s.parseUploads(w, r, false)
}

func (s *Server) parseUploads(w http.ResponseWriter, r *http.Request, required bool) ([]media.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Upload is too large")
		} else {
			writeMessage(w, http.StatusBadRequest, "Expected a multipart form")
		}
		return nil, false
	}

	files := append(r.MultipartForm.File["mediaFiles"], r.MultipartForm.File["mediaFiles[]"]...)
	if required && len(files) == 0 {
		r.MultipartForm.RemoveAll()
		writeMessage(w, http.StatusBadRequest, "At least one media file is required.")
		return nil, false
	}

	uploads := make([]media.Upload, 0, len(files))
	for _, fh := range files {
		uploads = append(uploads, media.Upload{
			Filename:    fh.Filename,
			ContentType: media.ContentTypeOf(fh.Header.Get("Content-Type"), fh.Filename),
			Open:        openPart(fh),
		})
	}
	return uploads, true
}

func openPart(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}

// formID parses a positive integer form field
func formID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.FormValue(name)), 10, 64)
	return id, err == nil && id > 0
}
