package db

import (
	"context"

	"github.com/google/uuid"
)

const getAttachmentBySubject = `
SELECT id, kind, subject_id, image, title, created_at, updated_at
FROM notification_attachments
WHERE kind = $1 AND subject_id = $2
`

type GetAttachmentBySubjectParams struct {
	Kind      AttachmentKind `json:"kind"`
	SubjectID string         `json:"subject_id"`
}

func (q *Queries) GetAttachmentBySubject(ctx context.Context, arg GetAttachmentBySubjectParams) (NotificationAttachment, error) {
	row := q.db.QueryRow(ctx, getAttachmentBySubject, arg.Kind, arg.SubjectID)
	var i NotificationAttachment
	err := row.Scan(
		&i.ID,
		&i.Kind,
		&i.SubjectID,
		&i.Image,
		&i.Title,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertAttachment = `
INSERT INTO notification_attachments (id, kind, subject_id, image, title)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (kind, subject_id) DO NOTHING
RETURNING id, kind, subject_id, image, title, created_at, updated_at
`

type InsertAttachmentParams struct {
	ID        uuid.UUID      `json:"id"`
	Kind      AttachmentKind `json:"kind"`
	SubjectID string         `json:"subject_id"`
	Image     string         `json:"image"`
	Title     string         `json:"title"`
}

// InsertAttachment creates a fragment unless one already exists for the same
// (kind, subject_id). A lost insert race surfaces as ErrRecordNotFound and
// the caller re-reads the winning row.
func (q *Queries) InsertAttachment(ctx context.Context, arg InsertAttachmentParams) (NotificationAttachment, error) {
	row := q.db.QueryRow(ctx, insertAttachment,
		arg.ID,
		arg.Kind,
		arg.SubjectID,
		arg.Image,
		arg.Title,
	)
	var i NotificationAttachment
	err := row.Scan(
		&i.ID,
		&i.Kind,
		&i.SubjectID,
		&i.Image,
		&i.Title,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateAttachment = `
UPDATE notification_attachments
SET kind = $2, image = $3, updated_at = now()
WHERE id = $1
`

type UpdateAttachmentParams struct {
	ID    uuid.UUID      `json:"id"`
	Kind  AttachmentKind `json:"kind"`
	Image string         `json:"image"`
}

func (q *Queries) UpdateAttachment(ctx context.Context, arg UpdateAttachmentParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateAttachment, arg.ID, arg.Kind, arg.Image)
	return result.RowsAffected(), err
}

const repointAttachmentLinksInsert = `
INSERT INTO notification_header_attachments (notification_id, attachment_id, position)
SELECT notification_id, $2, position
FROM notification_header_attachments
WHERE attachment_id = $1
ON CONFLICT (notification_id, attachment_id) DO NOTHING
`

const repointAttachmentLinksDelete = `
DELETE FROM notification_header_attachments
WHERE attachment_id = $1
`

type RepointAttachmentLinksParams struct {
	FromID uuid.UUID `json:"from_id"`
	ToID   uuid.UUID `json:"to_id"`
}

// RepointAttachmentLinks moves every header link from one attachment fragment
// to another. Headers already linked to the target keep their existing link.
func (q *Queries) RepointAttachmentLinks(ctx context.Context, arg RepointAttachmentLinksParams) error {
	if _, err := q.db.Exec(ctx, repointAttachmentLinksInsert, arg.FromID, arg.ToID); err != nil {
		return err
	}
	_, err := q.db.Exec(ctx, repointAttachmentLinksDelete, arg.FromID)
	return err
}

const deleteAttachment = `
DELETE FROM notification_attachments
WHERE id = $1
`

func (q *Queries) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteAttachment, id)
	return err
}

const deleteOrphanAttachments = `
DELETE FROM notification_attachments a
WHERE NOT EXISTS (
	SELECT 1 FROM notification_header_attachments l WHERE l.attachment_id = a.id
)
`

// DeleteOrphanAttachments removes fragments no header references anymore.
func (q *Queries) DeleteOrphanAttachments(ctx context.Context) (int64, error) {
	result, err := q.db.Exec(ctx, deleteOrphanAttachments)
	return result.RowsAffected(), err
}
