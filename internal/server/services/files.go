package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/dmitrijs2005/selva/internal/dbx"
	"github.com/dmitrijs2005/selva/internal/server/blobs"
	"github.com/dmitrijs2005/selva/internal/server/formfields"
	"github.com/dmitrijs2005/selva/internal/server/models"
	"github.com/dmitrijs2005/selva/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// FileService stores uploaded files: content goes to blob storage, metadata
// to the files table.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blobs.Store
	now         func() time.Time
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, store blobs.Store) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		blobs:       store,
		now:         time.Now,
	}
}

// StorageKey returns a fresh blob key for a file uploaded at t.
func StorageKey(t time.Time) string {
	return fmt.Sprintf("files/%d/%d/%d/%v", t.Year(), t.Month(), t.Day(), uuid.New())
}

// Create stores content and inserts the file row through tx. When tx is
// rolled back the blob stays behind unreferenced.
func (s *FileService) Create(ctx context.Context, tx dbx.DBTX, fileName string, content []byte) (int64, error) {
	key := StorageKey(s.now())
	if err := s.blobs.Put(ctx, key, content); err != nil {
		return 0, fmt.Errorf("error storing file content: %w", err)
	}

	id, err := s.repomanager.Files(tx).Create(ctx, &models.File{
		FileName:   fileName,
		StorageKey: key,
		Size:       int64(len(content)),
	})
	if err != nil {
		return 0, fmt.Errorf("error creating file: %w", err)
	}
	return id, nil
}

// Creator binds Create to tx for use by a formfields.Builder.
func (s *FileService) Creator(tx dbx.DBTX) formfields.FileCreator {
	return &txFileCreator{files: s, tx: tx}
}

// Load returns the name and content of a stored file. A missing row or blob
// yields common.ErrorNotFound.
func (s *FileService) Load(ctx context.Context, id int64) (string, []byte, error) {
	f, err := s.repomanager.Files(s.db).GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}

	content, err := s.blobs.Get(ctx, f.StorageKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil, common.ErrorNotFound
		}
		return "", nil, fmt.Errorf("error loading file content: %w", err)
	}
	return f.FileName, content, nil
}

// Names maps file ids to their original names; unknown ids are absent.
func (s *FileService) Names(ctx context.Context, ids []int64) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}
	return s.repomanager.Files(s.db).Names(ctx, ids)
}

type txFileCreator struct {
	files *FileService
	tx    dbx.DBTX
}

func (c *txFileCreator) Create(ctx context.Context, fileName string, content []byte) (int64, error) {
	return c.files.Create(ctx, c.tx, fileName, content)
}
