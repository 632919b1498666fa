// Package storage wraps the S3-compatible object store (MinIO) behind
// the small gateway surface the work-query service consumes: upload,
// batch upload, delete. Uploads are strict; deletes are best-effort by
// contract — callers log a failed delete and continue.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"github.com/fmdesk/workquery-server/internal/config"
	"github.com/fmdesk/workquery-server/internal/models"
)

// Gateway talks to the object-storage provider.
type Gateway struct {
	client        *minio.Client
	endpoint      string
	bucket        string
	folder        string
	useSSL        bool
	uploadTimeout time.Duration
	region        string
}

// New creates a MinIO-backed gateway from the Config.
func New(cfg *config.Config) (*Gateway, error) {
	client, err := minio.New(cfg.StorageEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.StorageAccessKey, cfg.StorageSecretKey, ""),
		Secure: cfg.StorageUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Gateway{
		client:        client,
		endpoint:      cfg.StorageEndpoint,
		bucket:        cfg.StorageBucket,
		folder:        strings.Trim(cfg.StorageFolder, "/"),
		useSSL:        cfg.StorageUseSSL,
		uploadTimeout: time.Duration(cfg.UploadTimeoutSec) * time.Second,
	}, nil
}

// EnsureBucket makes sure the proof bucket exists before use.
func (g *Gateway) EnsureBucket(ctx context.Context) error {
	exists, err := g.client.BucketExists(ctx, g.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", g.bucket, err)
	}
	if !exists {
		if err := g.client.MakeBucket(ctx, g.bucket, minio.MakeBucketOptions{Region: g.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", g.bucket, err)
		}
	}
	return nil
}

// Upload stores one file and returns the populated proof record. Any
// transport or provider error surfaces as an UploadError naming the
// original filename.
func (g *Gateway) Upload(ctx context.Context, f models.IncomingFile) (*models.ProofFile, error) {
	ctx, cancel := context.WithTimeout(ctx, g.uploadTimeout)
	defer cancel()

	key := g.objectKey(f.Name)
	opts := minio.PutObjectOptions{ContentType: f.MediaType}
	if _, err := g.client.PutObject(ctx, g.bucket, key, bytes.NewReader(f.Data), f.Size, opts); err != nil {
		return nil, &models.UploadError{File: f.Name, Err: err}
	}

	return &models.ProofFile{
		Name:       f.Name,
		Type:       KindFromMediaType(f.MediaType),
		URL:        g.objectURL(key),
		PublicID:   key,
		Size:       FormatBytes(f.Size),
		Format:     strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), "."),
		Bytes:      f.Size,
		UploadDate: time.Now().UTC(),
	}, nil
}

// UploadMany uploads a batch concurrently with all-or-nothing semantics.
// On success the results preserve the caller's input order, not upload
// completion order. On failure the returned slice holds only the
// uploads that did complete, so the caller can issue compensating
// deletes; the error names the file that failed first.
func (g *Gateway) UploadMany(ctx context.Context, files []models.IncomingFile) ([]models.ProofFile, error) {
	return uploadBatch(ctx, files, g.Upload)
}

// uploadBatch runs the per-file uploads concurrently and indexes results
// back to input positions, so the persisted order never depends on
// completion order.
func uploadBatch(ctx context.Context, files []models.IncomingFile, upload func(context.Context, models.IncomingFile) (*models.ProofFile, error)) ([]models.ProofFile, error) {
	results := make([]*models.ProofFile, len(files))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		eg.Go(func() error {
			pf, err := upload(egCtx, f)
			if err != nil {
				return err
			}
			results[i] = pf
			return nil
		})
	}
	err := eg.Wait()

	out := make([]models.ProofFile, 0, len(files))
	for _, pf := range results {
		if pf != nil {
			out = append(out, *pf)
		}
	}
	return out, err
}

// Delete removes a stored object by its public id. Callers treat
// failures as cleanup warnings: log and move on.
func (g *Gateway) Delete(ctx context.Context, publicID string) error {
	if err := g.client.RemoveObject(ctx, g.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", publicID, err)
	}
	return nil
}

// objectKey builds a collision-resistant public identifier from a
// timestamp, a uuid fragment, and the sanitized original filename.
func (g *Gateway) objectKey(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	base := SanitizeFilename(strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName)))
	frag := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s/%d-%s-%s%s", g.folder, time.Now().UnixMilli(), frag, base, ext)
}

// objectURL is the stable retrieval URL for a stored object. The proof
// bucket is public-read, so plain path-style URLs suffice.
func (g *Gateway) objectURL(key string) string {
	scheme := "http"
	if g.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, g.endpoint, g.bucket, key)
}

// KindFromMediaType derives the proof-file kind deterministically from
// the declared media type.
func KindFromMediaType(mediaType string) models.FileKind {
	mt := strings.ToLower(mediaType)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return models.FileKindImage
	case strings.HasPrefix(mt, "video/"):
		return models.FileKindVideo
	case strings.HasPrefix(mt, "application/"), strings.HasPrefix(mt, "text/"):
		return models.FileKindDocument
	default:
		return models.FileKindOther
	}
}

// SanitizeFilename strips characters that are unsafe in object keys,
// collapsing runs of replaced characters into a single dash.
func SanitizeFilename(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
			}
			lastDash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "file"
	}
	return out
}

// FormatBytes renders a raw byte count as the human-readable size
// stored on the proof record, e.g. "2.35 MB". Computed once at upload.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %s", float64(n)/float64(div), []string{"KB", "MB", "GB", "TB"}[exp])
}
