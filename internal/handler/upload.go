package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/storage"
)

// multipartOverhead leaves room for the form boundary and other fields on
// top of the largest accepted image.
const multipartOverhead = 1 << 20

// imageFields are the form field names accepted for an uploaded image.
var imageFields = []string{"image", "file"}

// readUpload extracts the image part of a multipart request. The caller
// must call the returned closer when done with the body.
func readUpload(w http.ResponseWriter, r *http.Request) (storage.Upload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageBytes+multipartOverhead)
	if err := r.ParseMultipartForm(storage.MaxImageBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return storage.Upload{}, nil, apperror.ValidationFailed("file", "file size too large, maximum size is 5MB")
		}
		return storage.Upload{}, nil, apperror.ValidationFailed("file", "expected a multipart form with an image")
	}

	var (
		file   multipart.File
		header *multipart.FileHeader
		err    error
	)
	for _, field := range imageFields {
		file, header, err = r.FormFile(field)
		if err == nil {
			break
		}
	}
	if file == nil {
		_ = r.MultipartForm.RemoveAll()
		return storage.Upload{}, nil, apperror.ValidationFailed("file", "no file selected")
	}

	closer := func() {
		_ = file.Close()
		_ = r.MultipartForm.RemoveAll()
	}
	return storage.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	}, closer, nil
}
