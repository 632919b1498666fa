package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmdesk/workquery-server/internal/models"
)

func TestUploadBatch_PreservesInputOrder(t *testing.T) {
	files := []models.IncomingFile{
		{Name: "a.jpg", MediaType: "image/jpeg"},
		{Name: "b.jpg", MediaType: "image/jpeg"},
		{Name: "c.jpg", MediaType: "image/jpeg"},
	}

	// Make earlier inputs finish later, so completion order is c, b, a.
	delays := map[string]time.Duration{"a.jpg": 30 * time.Millisecond, "b.jpg": 15 * time.Millisecond, "c.jpg": 0}
	upload := func(_ context.Context, f models.IncomingFile) (*models.ProofFile, error) {
		time.Sleep(delays[f.Name])
		return &models.ProofFile{Name: f.Name, PublicID: "proofs/" + f.Name}, nil
	}

	out, err := uploadBatch(context.Background(), files, upload)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "a.jpg", out[0].Name)
	assert.Equal(t, "b.jpg", out[1].Name)
	assert.Equal(t, "c.jpg", out[2].Name)
}

func TestUploadBatch_ReturnsCompletedUploadsOnFailure(t *testing.T) {
	files := []models.IncomingFile{
		{Name: "ok-1.jpg"},
		{Name: "broken.jpg"},
		{Name: "ok-2.jpg"},
	}

	upload := func(_ context.Context, f models.IncomingFile) (*models.ProofFile, error) {
		if f.Name == "broken.jpg" {
			return nil, &models.UploadError{File: f.Name, Err: errors.New("timeout")}
		}
		return &models.ProofFile{Name: f.Name, PublicID: "proofs/" + f.Name}, nil
	}

	out, err := uploadBatch(context.Background(), files, upload)

	var ue *models.UploadError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "broken.jpg", ue.File)
	// The completed siblings are returned so the caller can compensate.
	for _, pf := range out {
		assert.NotEqual(t, "broken.jpg", pf.Name)
	}
}

func TestUploadBatch_Empty(t *testing.T) {
	out, err := uploadBatch(context.Background(), nil, func(context.Context, models.IncomingFile) (*models.ProofFile, error) {
		t.Fatal("upload must not be called for an empty batch")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestKindFromMediaType(t *testing.T) {
	assert.Equal(t, models.FileKindImage, KindFromMediaType("image/jpeg"))
	assert.Equal(t, models.FileKindVideo, KindFromMediaType("video/mp4"))
	assert.Equal(t, models.FileKindDocument, KindFromMediaType("application/pdf"))
	assert.Equal(t, models.FileKindDocument, KindFromMediaType("text/csv"))
	assert.Equal(t, models.FileKindOther, KindFromMediaType("audio/mpeg"))
	assert.Equal(t, models.FileKindOther, KindFromMediaType(""))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.00 KB", FormatBytes(1024))
	assert.Equal(t, "2.35 MB", FormatBytes(2463302))
	assert.Equal(t, "1.50 GB", FormatBytes(1610612736))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "site-photo", SanitizeFilename("Site Photo"))
	assert.Equal(t, "gate_sensor-3", SanitizeFilename("gate_sensor (3)"))
	assert.Equal(t, "file", SanitizeFilename("???"))
}
