package db

import (
	"context"

	"github.com/google/uuid"
)

const getAvatarBySubject = `
SELECT id, kind, subject_id, name, image, target_url, created_at, updated_at
FROM notification_avatars
WHERE kind = $1 AND subject_id = $2
`

type GetAvatarBySubjectParams struct {
	Kind      AvatarKind `json:"kind"`
	SubjectID string     `json:"subject_id"`
}

func (q *Queries) GetAvatarBySubject(ctx context.Context, arg GetAvatarBySubjectParams) (NotificationAvatar, error) {
	row := q.db.QueryRow(ctx, getAvatarBySubject, arg.Kind, arg.SubjectID)
	var i NotificationAvatar
	err := row.Scan(
		&i.ID,
		&i.Kind,
		&i.SubjectID,
		&i.Name,
		&i.Image,
		&i.TargetUrl,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertAvatar = `
INSERT INTO notification_avatars (id, kind, subject_id, name, image, target_url)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (kind, subject_id) DO NOTHING
RETURNING id, kind, subject_id, name, image, target_url, created_at, updated_at
`

type InsertAvatarParams struct {
	ID        uuid.UUID  `json:"id"`
	Kind      AvatarKind `json:"kind"`
	SubjectID string     `json:"subject_id"`
	Name      string     `json:"name"`
	Image     string     `json:"image"`
	TargetUrl string     `json:"target_url"`
}

// InsertAvatar creates a fragment unless one already exists for the same
// (kind, subject_id). A lost insert race surfaces as ErrRecordNotFound and
// the caller re-reads the winning row.
func (q *Queries) InsertAvatar(ctx context.Context, arg InsertAvatarParams) (NotificationAvatar, error) {
	row := q.db.QueryRow(ctx, insertAvatar,
		arg.ID,
		arg.Kind,
		arg.SubjectID,
		arg.Name,
		arg.Image,
		arg.TargetUrl,
	)
	var i NotificationAvatar
	err := row.Scan(
		&i.ID,
		&i.Kind,
		&i.SubjectID,
		&i.Name,
		&i.Image,
		&i.TargetUrl,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateAvatarsBySubject = `
UPDATE notification_avatars
SET name = $3, image = $4, target_url = $5, updated_at = now()
WHERE kind = $1 AND subject_id = $2
`

type UpdateAvatarsBySubjectParams struct {
	Kind      AvatarKind `json:"kind"`
	SubjectID string     `json:"subject_id"`
	Name      string     `json:"name"`
	Image     string     `json:"image"`
	TargetUrl string     `json:"target_url"`
}

// UpdateAvatarsBySubject refreshes the rendered identity snapshot of every
// avatar fragment referencing the subject. Only the consistency maintainer
// calls this; the bundle store never rewrites fragment content.
func (q *Queries) UpdateAvatarsBySubject(ctx context.Context, arg UpdateAvatarsBySubjectParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateAvatarsBySubject,
		arg.Kind,
		arg.SubjectID,
		arg.Name,
		arg.Image,
		arg.TargetUrl,
	)
	return result.RowsAffected(), err
}

const deleteOrphanAvatars = `
DELETE FROM notification_avatars a
WHERE NOT EXISTS (
	SELECT 1 FROM notification_header_avatars l WHERE l.avatar_id = a.id
)
`

// DeleteOrphanAvatars removes fragments no header references anymore.
func (q *Queries) DeleteOrphanAvatars(ctx context.Context) (int64, error) {
	result, err := q.db.Exec(ctx, deleteOrphanAvatars)
	return result.RowsAffected(), err
}
