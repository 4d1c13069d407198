// Package housekeeper is a tagged bundle file store. Blobs live in a qart.Store
// under content addressed keys; bundles, files and tags are indexed in the
// relational database.
package housekeeper

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/quatton/qseq/pkg/db/models"
	"github.com/quatton/qseq/pkg/qart"
	"github.com/quatton/qseq/pkg/qlog"
	"github.com/uptrace/bun"
)

// FileStore is the registration API the post-processing pipeline depends on.
type FileStore interface {
	CreateBundleAndAddFileWithTags(ctx context.Context, bundle, path string, tags []string) error
}

type Store struct {
	db     *bun.DB
	blobs  qart.Store
	logger *qlog.Logger
}

func New(db *bun.DB, blobs qart.Store, logger *qlog.Logger) *Store {
	return &Store{db: db, blobs: blobs, logger: qlog.OrDefault(logger)}
}

// CreateBundleAndAddFileWithTags uploads path unless identical content is
// already stored, then records it in bundle with tags. Registering the same
// file twice only adds missing tags.
func (s *Store) CreateBundleAndAddFileWithTags(ctx context.Context, bundle, path string, tags []string) error {
	if bundle == "" {
		return errors.New("bundle name is empty")
	}
	sum, size, err := digest(path)
	if err != nil {
		return err
	}
	key := qart.ContentKey(sum, path)

	uploaded, err := s.ensureBlob(ctx, key, path, size, sum)
	if err != nil {
		return err
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		b, err := getOrCreateBundle(ctx, tx, bundle)
		if err != nil {
			return err
		}
		f, err := getOrCreateFile(ctx, tx, &models.File{
			ID:       uuid.New(),
			BundleID: b.ID,
			BlobKey:  key,
			Path:     path,
			Checksum: sum,
			Size:     size,
		})
		if err != nil {
			return err
		}
		for _, name := range normalizeTags(tags) {
			tag, err := getOrCreateTag(ctx, tx, name)
			if err != nil {
				return err
			}
			_, err = tx.NewInsert().
				Model(&models.FileTag{FileID: f.ID, TagID: tag.ID}).
				On("CONFLICT (file_id, tag_id) DO NOTHING").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("tag %s with %s: %w", path, name, err)
			}
		}
		s.logger.Debug("registered file", "bundle", bundle, "file", filepath.Base(path), "key", key)
		return nil
	})
	if err != nil && uploaded {
		s.removeOrphan(ctx, key)
	}
	return err
}

// removeOrphan deletes a blob this call uploaded when no file row ended up
// referencing it.
func (s *Store) removeOrphan(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	refs, err := s.db.NewSelect().Model((*models.File)(nil)).Where("blob_key = ?", key).Count(ctx)
	if err != nil {
		s.logger.Warn("failed to check blob references", "key", key, "error", err)
		return
	}
	if refs > 0 {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete orphaned blob", "key", key, "error", err)
		return
	}
	s.logger.Debug("deleted orphaned blob", "key", key)
}

// ensureBlob uploads path under key unless the key exists. uploaded reports
// whether this call wrote the blob.
func (s *Store) ensureBlob(ctx context.Context, key, path string, size int64, sum string) (uploaded bool, err error) {
	_, err = s.blobs.Stat(ctx, key)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, qart.ErrNotFound) {
		return false, fmt.Errorf("stat %s: %w", key, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = s.blobs.Upload(ctx, key, f, size, contentType, map[string]string{"sha256": sum})
	if err != nil {
		return false, fmt.Errorf("upload %s: %w", path, err)
	}
	return true, nil
}

// FindFiles returns the files of bundle that carry every tag in tags, with
// all their tags loaded.
func (s *Store) FindFiles(ctx context.Context, bundle string, tags []string) ([]models.File, error) {
	var files []models.File
	q := s.db.NewSelect().
		Model(&files).
		Relation("Tags", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("t.name ASC")
		}).
		Join("JOIN bundles AS b ON b.id = f.bundle_id").
		Where("b.name = ?", bundle).
		Order("f.path ASC")

	if tags = normalizeTags(tags); len(tags) > 0 {
		tagged := s.db.NewSelect().
			TableExpr("file_tags AS ft").
			Column("ft.file_id").
			Join("JOIN tags AS t ON t.id = ft.tag_id").
			Where("t.name IN (?)", bun.In(tags)).
			Group("ft.file_id").
			Having("COUNT(DISTINCT ft.tag_id) = ?", len(tags))
		q = q.Where("f.id IN (?)", tagged)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("find files in %s: %w", bundle, err)
	}
	return files, nil
}

func getOrCreateBundle(ctx context.Context, tx bun.Tx, name string) (*models.Bundle, error) {
	_, err := tx.NewInsert().
		Model(&models.Bundle{Name: name}).
		On("CONFLICT (name) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("insert bundle %s: %w", name, err)
	}
	b := new(models.Bundle)
	if err := tx.NewSelect().Model(b).Where("name = ?", name).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select bundle %s: %w", name, err)
	}
	return b, nil
}

func getOrCreateFile(ctx context.Context, tx bun.Tx, f *models.File) (*models.File, error) {
	_, err := tx.NewInsert().
		Model(f).
		On("CONFLICT (bundle_id, blob_key) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("insert file %s: %w", f.Path, err)
	}
	existing := new(models.File)
	err = tx.NewSelect().Model(existing).Where("bundle_id = ? AND blob_key = ?", f.BundleID, f.BlobKey).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select file %s: %w", f.Path, err)
	}
	return existing, nil
}

func getOrCreateTag(ctx context.Context, tx bun.Tx, name string) (*models.Tag, error) {
	_, err := tx.NewInsert().
		Model(&models.Tag{Name: name}).
		On("CONFLICT (name) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("insert tag %s: %w", name, err)
	}
	tag := new(models.Tag)
	if err := tx.NewSelect().Model(tag).Where("name = ?", name).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select tag %s: %w", name, err)
	}
	return tag, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func digest(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

var _ FileStore = (*Store)(nil)
