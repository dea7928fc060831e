package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"freight-backoffice/internal/service"
	"freight-backoffice/pkg/apierror"
)

// multipartMemory is how much of a form is kept in memory; larger file
// parts spill to temporary files.
const multipartMemory = 8 << 20

// multipartOverhead leaves room for form fields and boundaries on top of the
// file size limit.
const multipartOverhead = 1 << 20

type multipartForm struct {
	form *multipart.Form
}

func parseMultipart(w http.ResponseWriter, r *http.Request, maxUpload int64) (*multipartForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isPayloadTooLarge(err) {
			return nil, apierror.New("PAYLOAD_TOO_LARGE", "request body exceeds MAX_UPLOAD_SIZE", "MAX_UPLOAD_SIZE", http.StatusRequestEntityTooLarge)
		}
		return nil, apierror.BadRequest("invalid multipart body", "")
	}

	return &multipartForm{form: r.MultipartForm}, nil
}

func (f *multipartForm) value(name string) string {
	values := f.form.Value[name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

// file opens the first file part named field. The caller closes it.
func (f *multipartForm) file(field string) (multipart.File, service.Upload, error) {
	headers := f.form.File[field]
	if len(headers) == 0 {
		return nil, service.Upload{}, apierror.BadRequest("form field '"+field+"' is required", field)
	}

	opened, err := headers[0].Open()
	if err != nil {
		return nil, service.Upload{}, apierror.BadRequest("unreadable file part", field)
	}

	return opened, service.Upload{Filename: headers[0].Filename, Body: opened}, nil
}

func (f *multipartForm) hasFile(field string) bool {
	return len(f.form.File[field]) > 0
}

func (f *multipartForm) cleanup() {
	if f != nil && f.form != nil {
		_ = f.form.RemoveAll()
	}
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}
