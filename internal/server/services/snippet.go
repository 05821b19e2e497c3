package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snipvault/snipvault/internal/common"
	"github.com/snipvault/snipvault/internal/cryptox"
	"github.com/snipvault/snipvault/internal/dbx"
	"github.com/snipvault/snipvault/internal/logging"
	"github.com/snipvault/snipvault/internal/secscan"
	"github.com/snipvault/snipvault/internal/server/blobstore"
	"github.com/snipvault/snipvault/internal/server/models"
	"github.com/snipvault/snipvault/internal/server/repositories/repomanager"
)

// inlineContentLimit is the largest sealed payload stored in the content
// column. Bigger payloads go to the blob store as a sealed stream.
const inlineContentLimit = 64 * 1024

// SealedBlobStore is the object-storage port for oversized sealed content.
// *blobstore.S3Store satisfies it.
type SealedBlobStore interface {
	UploadSealed(ctx context.Context, key string, plaintext io.Reader, contentKey []byte) error
	DownloadSealed(ctx context.Context, key string, dst io.Writer, contentKey []byte) error
}

// SnippetService runs the save pipeline: scan, hash-compare against the
// current version, bump the version counter and persist a new immutable
// content row. Sealed snippets are encrypted with the service content key
// before they touch storage.
type SnippetService struct {
	db      *sql.DB
	rm      repomanager.RepositoryManager
	blobs   SealedBlobStore
	logger  logging.Logger
	now     func() time.Time

	contentKey []byte
}

func NewSnippetService(db *sql.DB, rm repomanager.RepositoryManager, blobs SealedBlobStore, contentKey []byte, logger logging.Logger) (*SnippetService, error) {
	if len(contentKey) != cryptox.KeySize {
		return nil, common.ErrInvalidKey
	}
	return &SnippetService{
		db:         db,
		rm:         rm,
		blobs:      blobs,
		logger:     logger.With("component", "snippet"),
		now:        time.Now,
		contentKey: contentKey,
	}, nil
}

// WithClock overrides the service time source. Intended for tests.
func (s *SnippetService) WithClock(now func() time.Time) *SnippetService {
	s.now = now
	return s
}

// CreateSnippet registers an empty snippet at version 0. Content arrives
// through SaveContent.
func (s *SnippetService) CreateSnippet(ctx context.Context, ownerID, title, language string, sealed bool) (*models.Snippet, error) {
	now := s.now()
	snip := &models.Snippet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Language:  language,
		Version:   0,
		Sealed:    sealed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.rm.Snippets(s.db).Create(ctx, snip); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "snippet created", "snippet_id", snip.ID, "sealed", sealed)
	return snip, nil
}

// SaveContent stores a new content version. The scan runs on the plaintext
// before any sealing; when the content hash matches the current version the
// save is a no-op and the existing version is returned with saved=false.
func (s *SnippetService) SaveContent(ctx context.Context, snippetID, content string) (*models.ContentVersion, bool, error) {
	scan := secscan.Scan(content)
	now := s.now()

	var out *models.ContentVersion
	saved := false

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Snippets(tx)

		snip, err := repo.Get(ctx, snippetID)
		if err != nil {
			return err
		}

		if snip.Version > 0 {
			cur, err := repo.GetVersion(ctx, snippetID, snip.Version)
			if err != nil {
				return err
			}
			if cur.ContentHash == scan.ContentHash {
				out = cur
				return nil
			}
		}

		version, err := repo.BumpVersion(ctx, snippetID, now)
		if err != nil {
			return err
		}

		v := &models.ContentVersion{
			SnippetID:   snippetID,
			Version:     version,
			ContentHash: scan.ContentHash,
			DetectedAt:  now,
			CreatedAt:   now,
		}
		for _, k := range scan.Findings {
			v.Findings = append(v.Findings, string(k))
		}

		if err := s.sealInto(ctx, v, snip, content); err != nil {
			return err
		}

		if err := repo.InsertVersion(ctx, v); err != nil {
			return err
		}
		out = v
		saved = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if saved {
		s.logger.Info(ctx, "snippet content saved",
			"snippet_id", snippetID,
			"version", out.Version,
			"sensitive", out.ContainsSensitiveData(),
		)
	}
	return out, saved, nil
}

// sealInto fills the storage fields of v: raw text for unsealed snippets,
// an encoded envelope for small sealed payloads, a blob key for large ones.
func (s *SnippetService) sealInto(ctx context.Context, v *models.ContentVersion, snip *models.Snippet, content string) error {
	if !snip.Sealed {
		v.Content = content
		return nil
	}

	if len(content) > inlineContentLimit {
		if s.blobs == nil {
			return fmt.Errorf("sealed payload exceeds inline limit and no blob store is configured: %w", common.ErrorInternal)
		}
		key := blobstore.RandomStorageKey(snip.OwnerID)
		if err := s.blobs.UploadSealed(ctx, key, strings.NewReader(content), s.contentKey); err != nil {
			return err
		}
		v.BlobKey = key
		return nil
	}

	blob, err := cryptox.Encrypt([]byte(content), s.contentKey)
	if err != nil {
		return err
	}
	encoded, err := cryptox.EncodeString(blob)
	if err != nil {
		return err
	}
	v.Content = encoded
	return nil
}

// GetContent returns the plaintext of the snippet's current version together
// with the version row.
func (s *SnippetService) GetContent(ctx context.Context, snippetID string) (string, *models.ContentVersion, error) {
	repo := s.rm.Snippets(s.db)

	snip, err := repo.Get(ctx, snippetID)
	if err != nil {
		return "", nil, err
	}
	if snip.Version == 0 {
		return "", nil, common.ErrorNotFound
	}

	v, err := repo.GetVersion(ctx, snippetID, snip.Version)
	if err != nil {
		return "", nil, err
	}

	if !snip.Sealed {
		return v.Content, v, nil
	}

	if v.BlobKey != "" {
		var buf bytes.Buffer
		if err := s.blobs.DownloadSealed(ctx, v.BlobKey, &buf, s.contentKey); err != nil {
			return "", nil, err
		}
		return buf.String(), v, nil
	}

	blob, err := cryptox.DecodeString(v.Content)
	if err != nil {
		return "", nil, err
	}
	plaintext, err := cryptox.Decrypt(blob, s.contentKey)
	if err != nil {
		return "", nil, err
	}
	return string(plaintext), v, nil
}

// Lookup makes the snippet service usable as the share resource collaborator.
// Resource refs have the form "snippet:<id>".
func (s *SnippetService) Lookup(ctx context.Context, resourceRef string) (*Resource, error) {
	id, ok := strings.CutPrefix(resourceRef, "snippet:")
	if !ok || id == "" {
		return nil, fmt.Errorf("resource ref %q: %w", resourceRef, common.ErrorNotFound)
	}

	snip, err := s.rm.Snippets(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	content, _, err := s.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Resource{
		Ref:     resourceRef,
		OwnerID: snip.OwnerID,
		Content: []byte(content),
	}, nil
}
