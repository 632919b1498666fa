package services

import (
	"errors"
	"mime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmdesk/workquery-server/internal/models"
)

func TestValidate_AllowedTypes(t *testing.T) {
	v := NewProofFileValidator()

	cases := []struct {
		mediaType string
		filename  string
		wantKind  models.FileKind
	}{
		{"image/jpeg", "photo.jpg", models.FileKindImage},
		{"image/jpeg", "photo.jpeg", models.FileKindImage},
		{"image/png", "screenshot.png", models.FileKindImage},
		{"image/webp", "pic.webp", models.FileKindImage},
		{"image/gif", "clip.gif", models.FileKindImage},
		{"image/bmp", "scan.bmp", models.FileKindImage},
		{"video/mp4", "recording.mp4", models.FileKindVideo},
		{"video/quicktime", "walkthrough.mov", models.FileKindVideo},
		{"video/webm", "cam.webm", models.FileKindVideo},
		{"video/x-matroska", "cam.mkv", models.FileKindVideo},
		{"video/x-flv", "old.flv", models.FileKindVideo},
		{"application/pdf", "invoice.pdf", models.FileKindDocument},
		{"application/msword", "report.doc", models.FileKindDocument},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "report.docx", models.FileKindDocument},
		{"text/plain", "notes.txt", models.FileKindDocument},
		{"text/csv", "readings.csv", models.FileKindDocument},
		{"application/vnd.ms-excel", "sheet.xls", models.FileKindDocument},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "sheet.xlsx", models.FileKindDocument},
		{"application/vnd.ms-powerpoint", "deck.ppt", models.FileKindDocument},
		{"application/vnd.openxmlformats-officedocument.presentationml.presentation", "deck.pptx", models.FileKindDocument},
	}

	for _, tc := range cases {
		kind, err := v.Validate(tc.mediaType, tc.filename)
		require.NoError(t, err, "%s / %s should be accepted", tc.mediaType, tc.filename)
		assert.Equal(t, tc.wantKind, kind)
	}
}

func TestValidate_DisallowedMediaType(t *testing.T) {
	v := NewProofFileValidator()

	for _, mt := range []string{
		"application/x-executable",
		"application/zip",
		"application/octet-stream",
		"audio/mpeg",
		"image/svg+xml",
	} {
		_, err := v.Validate(mt, "payload.bin")
		require.Error(t, err, "%s should be rejected", mt)

		var ve *models.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "payload.bin", ve.File)
		assert.Equal(t, mt, ve.MediaType)
	}
}

func TestValidate_ExtensionMismatch(t *testing.T) {
	v := NewProofFileValidator()

	// The extension check is conjunctive: an allowed media type with a
	// mismatched extension is still rejected.
	_, err := v.Validate("image/jpeg", "file.exe")
	require.Error(t, err)

	_, err = v.Validate("video/mp4", "clip.jpg")
	require.Error(t, err)

	_, err = v.Validate("application/pdf", "invoice.mp4")
	require.Error(t, err)
}

func TestValidate_NoExtensionPassesOnMediaType(t *testing.T) {
	v := NewProofFileValidator()

	kind, err := v.Validate("image/png", "camera-upload")
	require.NoError(t, err)
	assert.Equal(t, models.FileKindImage, kind)
}

func TestValidate_ParameterizedMediaType(t *testing.T) {
	v := NewProofFileValidator()

	// Media types may carry parameters; the allow-list match is on the
	// bare type.
	kind, err := v.Validate("text/plain; charset=utf-8", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, models.FileKindDocument, kind)

	kind, err = v.Validate("image/jpeg; q=0.9", "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, models.FileKindImage, kind)

	// The transport layer falls back to extension-derived types, which
	// the Go mime package returns with a charset parameter.
	kind, err = v.Validate(mime.TypeByExtension(".txt"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, models.FileKindDocument, kind)

	// A parameter never rescues a disallowed bare type.
	_, err = v.Validate("application/zip; charset=utf-8", "archive.zip")
	require.Error(t, err)
}

func TestValidate_CaseInsensitive(t *testing.T) {
	v := NewProofFileValidator()

	kind, err := v.Validate("IMAGE/JPEG", "PHOTO.JPG")
	require.NoError(t, err)
	assert.Equal(t, models.FileKindImage, kind)
}

func TestValidateAll_FailsOnFirstInvalid(t *testing.T) {
	v := NewProofFileValidator()

	files := []models.IncomingFile{
		{Name: "ok.jpg", MediaType: "image/jpeg"},
		{Name: "bad.exe", MediaType: "application/x-executable"},
		{Name: "also-ok.pdf", MediaType: "application/pdf"},
	}
	err := v.ValidateAll(files)
	require.Error(t, err)

	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "bad.exe", ve.File)
}
