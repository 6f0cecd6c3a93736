package repositories

import (
	"context"
	"database/sql"

	"racingplate/internal/models"
)

type MediaRepository interface {
	Create(ctx context.Context, f *models.MediaFile) error
	ListByUser(ctx context.Context, userID int, limit int) ([]*models.MediaFile, error)
	ListPublic(ctx context.Context, limit int) ([]*models.MediaFile, error)
}

type mediaRepository struct {
	DB *sql.DB
}

func NewMediaRepository(db *sql.DB) MediaRepository {
	return &mediaRepository{DB: db}
}

func (r *mediaRepository) Create(ctx context.Context, f *models.MediaFile) error {
	const q = `
		INSERT INTO media_files (user_id, filename, original_name, size, mime_type, storage_key)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, uploaded_at
	`
	var userID sql.NullInt64
	if f.UserID != nil {
		userID = sql.NullInt64{Int64: int64(*f.UserID), Valid: true}
	}
	return r.DB.QueryRowContext(ctx, q,
		userID, f.Filename, f.OriginalName, f.Size, f.MimeType, f.StorageKey,
	).Scan(&f.ID, &f.UploadedAt)
}

const mediaColumns = `id, user_id, filename, original_name, size, mime_type, storage_key, uploaded_at`

func (r *mediaRepository) list(rows *sql.Rows) ([]*models.MediaFile, error) {
	defer rows.Close()
	var files []*models.MediaFile
	for rows.Next() {
		f := &models.MediaFile{}
		var userID sql.NullInt64
		if err := rows.Scan(
			&f.ID, &userID, &f.Filename, &f.OriginalName, &f.Size, &f.MimeType,
			&f.StorageKey, &f.UploadedAt,
		); err != nil {
			return nil, err
		}
		if userID.Valid {
			id := int(userID.Int64)
			f.UserID = &id
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *mediaRepository) ListByUser(ctx context.Context, userID int, limit int) ([]*models.MediaFile, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media_files WHERE user_id = $1 ORDER BY uploaded_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	return r.list(rows)
}

func (r *mediaRepository) ListPublic(ctx context.Context, limit int) ([]*models.MediaFile, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media_files WHERE user_id IS NULL ORDER BY uploaded_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	return r.list(rows)
}
