package service

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path"

	"freight-backoffice/internal/storage"
	"freight-backoffice/internal/util"
	"freight-backoffice/pkg/apierror"
)

// FileStore is the part of storage.Storage the services need.
type FileStore interface {
	Save(clientPath string, src io.Reader, maxBytes int64) (int64, error)
	Open(clientPath string) (*os.File, os.FileInfo, error)
	Remove(clientPath string) error
}

type UploadPolicy struct {
	MaxBytes    int64
	AllowedMIME []string
}

// Upload is an incoming file part.
type Upload struct {
	Filename string
	Body     io.Reader
}

type storedFile struct {
	Path     string
	Name     string
	Size     int64
	MimeType string
}

func errTooLarge() error {
	return apierror.New("PAYLOAD_TOO_LARGE", "upload exceeds the size limit", "", http.StatusRequestEntityTooLarge)
}

type uploadOptions struct {
	imageOnly bool
	// keepName stores the file under its sanitized name instead of a
	// collision-free variant. Only safe when dir is owned by one record.
	keepName bool
}

// saveUpload sanitizes the name, sniffs the content type and writes the file
// under dir.
func saveUpload(files FileStore, policy UploadPolicy, dir string, upload Upload, opts uploadOptions) (storedFile, error) {
	name, err := util.SanitizeFilename(upload.Filename)
	if err != nil {
		return storedFile{}, err
	}

	mimeType, body, err := util.DetectMIME(upload.Body)
	if err != nil {
		return storedFile{}, apierror.BadRequest("unreadable upload", err.Error())
	}
	if (opts.imageOnly && !util.IsImageMIME(mimeType)) || !util.IsAllowedMIME(mimeType, policy.AllowedMIME) {
		return storedFile{}, apierror.New("UNSUPPORTED_MEDIA_TYPE", "file type is not allowed", mimeType, http.StatusUnsupportedMediaType)
	}

	target := storage.UniquePath(dir, name)
	if opts.keepName {
		target = path.Join(dir, name)
	}
	size, err := files.Save(target, body, policy.MaxBytes)
	if errors.Is(err, storage.ErrTooLarge) {
		return storedFile{}, errTooLarge()
	}
	if err != nil {
		return storedFile{}, err
	}

	return storedFile{Path: target, Name: name, Size: size, MimeType: mimeType}, nil
}

// openStored maps a missing file to a not-found API error.
func openStored(files FileStore, stored string) (*os.File, os.FileInfo, error) {
	if stored == "" {
		return nil, nil, apierror.NotFound("file not found", "")
	}
	file, info, err := files.Open(stored)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, apierror.NotFound("file not found", "")
	}
	return file, info, err
}
