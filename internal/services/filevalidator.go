// Package services contains business logic layers.
// Services are called by handlers and interact with the repository,
// the object storage gateway, and each other.
package services

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/fmdesk/workquery-server/internal/models"
)

// Media-type allow-list, partitioned by kind. A file must declare one of
// these types before any upload is attempted.
var allowedMediaTypes = map[string]models.FileKind{
	// Images
	"image/jpeg": models.FileKindImage,
	"image/jpg":  models.FileKindImage,
	"image/png":  models.FileKindImage,
	"image/webp": models.FileKindImage,
	"image/gif":  models.FileKindImage,
	"image/bmp":  models.FileKindImage,

	// Videos
	"video/mp4":         models.FileKindVideo,
	"video/quicktime":   models.FileKindVideo, // .mov
	"video/mov":         models.FileKindVideo,
	"video/avi":         models.FileKindVideo,
	"video/x-msvideo":   models.FileKindVideo, // .avi
	"video/webm":        models.FileKindVideo,
	"video/x-matroska":  models.FileKindVideo, // .mkv
	"video/mkv":         models.FileKindVideo,
	"video/x-flv":       models.FileKindVideo,
	"video/flv":         models.FileKindVideo,

	// Documents
	"application/pdf":    models.FileKindDocument,
	"application/msword": models.FileKindDocument,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": models.FileKindDocument,
	"text/plain": models.FileKindDocument,
	"text/csv":   models.FileKindDocument,
	"application/csv":          models.FileKindDocument,
	"application/vnd.ms-excel": models.FileKindDocument,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": models.FileKindDocument,
	"application/vnd.ms-powerpoint":                                     models.FileKindDocument,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": models.FileKindDocument,
}

// Allowed filename extensions per kind. The extension check is
// conjunctive: when a file name carries an extension it must match the
// kind implied by the media type. Files without an extension pass on
// media-type match alone.
var allowedExtensions = map[models.FileKind]map[string]bool{
	models.FileKindImage: {
		"jpg": true, "jpeg": true, "png": true, "webp": true, "gif": true, "bmp": true,
	},
	models.FileKindVideo: {
		"mp4": true, "mov": true, "avi": true, "webm": true, "mkv": true, "flv": true,
	},
	models.FileKindDocument: {
		"pdf": true, "doc": true, "docx": true, "txt": true,
		"xlsx": true, "xls": true, "ppt": true, "pptx": true, "csv": true,
	},
}

// ProofFileValidator gatekeeps every file before any network upload is
// attempted. It is deliberately stateless; constructed once and shared.
type ProofFileValidator struct{}

// NewProofFileValidator creates a proof file validator.
func NewProofFileValidator() *ProofFileValidator {
	return &ProofFileValidator{}
}

// Validate classifies a file by its declared media type and filename.
// It returns the derived file kind, or a ValidationError naming the
// offending file and media type. Parameters on the declared type
// ("text/plain; charset=utf-8") are stripped before the lookup.
func (v *ProofFileValidator) Validate(mediaType, filename string) (models.FileKind, error) {
	bare := strings.ToLower(strings.TrimSpace(mediaType))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		bare = parsed
	}

	kind, ok := allowedMediaTypes[bare]
	if !ok {
		return "", &models.ValidationError{
			File:      filename,
			MediaType: mediaType,
			Reason:    "media type is not allowed",
		}
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext != "" && !allowedExtensions[kind][ext] {
		return "", &models.ValidationError{
			File:      filename,
			MediaType: mediaType,
			Reason:    "file extension does not match an allowed " + string(kind) + " extension",
		}
	}

	return kind, nil
}

// ValidateAll screens a batch, failing on the first invalid file so the
// caller rejects the entire request before uploading anything.
func (v *ProofFileValidator) ValidateAll(files []models.IncomingFile) error {
	for _, f := range files {
		if _, err := v.Validate(f.MediaType, f.Name); err != nil {
			return err
		}
	}
	return nil
}
