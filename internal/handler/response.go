package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"freight-backoffice/internal/model"
	"freight-backoffice/pkg/apierror"
)

const maxJSONBody = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	writeJSON(w, status, model.DataResponse{Data: data, Meta: meta})
}

func writeError(w http.ResponseWriter, err error) {
	status, message := classifyError(err)
	writeJSON(w, status, model.ErrorResponse{Error: message})
}

func classifyError(err error) (int, string) {
	var apiErr *apierror.APIError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &apiErr):
		return apiErr.HTTPStatus, apiErr.Message
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, model.ErrInvalidSession), errors.Is(err, model.ErrInactiveIdentity):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, model.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, model.ErrAlreadyExists):
		return http.StatusConflict, "Already exists"
	case errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict, "Invalid status transition"
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid input"
	default:
		slog.Error("unhandled error in writeError", "error", err.Error())
		return http.StatusInternalServerError, "Internal server error"
	}
}

// decodeJSON reads a bounded JSON body into dst and runs struct validation.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("request body is required", "")
		}
		return apierror.BadRequest("invalid JSON body", "")
	}

	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return apierror.BadRequest(fmt.Sprintf("field '%s' failed '%s' validation", first.Field(), first.Tag()), first.Field())
	}
	return apierror.BadRequest("invalid request", "")
}

// Validation messages name fields by their JSON keys.
func init() {
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func serveFile(w http.ResponseWriter, r *http.Request, file *os.File, info os.FileInfo, disposition string, filename string) {
	defer file.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": filename}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, filename, modTime(info), file)
}

func modTime(info os.FileInfo) time.Time {
	if info == nil {
		return time.Time{}
	}
	return info.ModTime()
}
