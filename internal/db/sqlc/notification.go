package db

import (
	"context"

	"github.com/google/uuid"
)

const notificationColumns = `id, type, title, description, icon, target_url, is_public, reference_id, reference_type, unique_key, num_total_avatars, created_at, updated_at`

func scanNotification(row interface{ Scan(dest ...any) error }) (NotificationHeader, error) {
	var i NotificationHeader
	err := row.Scan(
		&i.ID,
		&i.Type,
		&i.Title,
		&i.Description,
		&i.Icon,
		&i.TargetUrl,
		&i.IsPublic,
		&i.ReferenceID,
		&i.ReferenceType,
		&i.UniqueKey,
		&i.NumTotalAvatars,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getNotificationByID = `
SELECT ` + notificationColumns + `
FROM notification_headers
WHERE id = $1
`

func (q *Queries) GetNotificationByID(ctx context.Context, id uuid.UUID) (NotificationHeader, error) {
	return scanNotification(q.db.QueryRow(ctx, getNotificationByID, id))
}

const getNotificationByTupleForUpdate = `
SELECT ` + notificationColumns + `
FROM notification_headers
WHERE type = $1 AND reference_id = $2 AND reference_type = $3 AND unique_key = $4
FOR UPDATE
`

type GetNotificationByTupleParams struct {
	Type          NotificationType `json:"type"`
	ReferenceID   string           `json:"reference_id"`
	ReferenceType ReferenceType    `json:"reference_type"`
	UniqueKey     string           `json:"unique_key"`
}

// GetNotificationByTupleForUpdate resolves the uniqueness tuple and locks the
// header row so concurrent merges of the same logical notification serialize.
func (q *Queries) GetNotificationByTupleForUpdate(ctx context.Context, arg GetNotificationByTupleParams) (NotificationHeader, error) {
	row := q.db.QueryRow(ctx, getNotificationByTupleForUpdate,
		arg.Type,
		arg.ReferenceID,
		arg.ReferenceType,
		arg.UniqueKey,
	)
	return scanNotification(row)
}

const insertNotification = `
INSERT INTO notification_headers (id, type, title, description, icon, target_url, is_public, reference_id, reference_type, unique_key, num_total_avatars)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (type, reference_id, reference_type, unique_key) DO NOTHING
RETURNING ` + notificationColumns

type InsertNotificationParams struct {
	ID              uuid.UUID        `json:"id"`
	Type            NotificationType `json:"type"`
	Title           string           `json:"title"`
	Description     *string          `json:"description"`
	Icon            string           `json:"icon"`
	TargetUrl       string           `json:"target_url"`
	IsPublic        bool             `json:"is_public"`
	ReferenceID     string           `json:"reference_id"`
	ReferenceType   ReferenceType    `json:"reference_type"`
	UniqueKey       string           `json:"unique_key"`
	NumTotalAvatars int32            `json:"num_total_avatars"`
}

// InsertNotification creates a header unless one already exists for the
// uniqueness tuple. A lost insert race surfaces as ErrRecordNotFound.
func (q *Queries) InsertNotification(ctx context.Context, arg InsertNotificationParams) (NotificationHeader, error) {
	row := q.db.QueryRow(ctx, insertNotification,
		arg.ID,
		arg.Type,
		arg.Title,
		arg.Description,
		arg.Icon,
		arg.TargetUrl,
		arg.IsPublic,
		arg.ReferenceID,
		arg.ReferenceType,
		arg.UniqueKey,
		arg.NumTotalAvatars,
	)
	return scanNotification(row)
}

const bumpNotificationTotalAvatars = `
UPDATE notification_headers
SET num_total_avatars = num_total_avatars + $2, updated_at = now()
WHERE id = $1
RETURNING ` + notificationColumns

type BumpNotificationTotalAvatarsParams struct {
	ID    uuid.UUID `json:"id"`
	Delta int32     `json:"delta"`
}

func (q *Queries) BumpNotificationTotalAvatars(ctx context.Context, arg BumpNotificationTotalAvatarsParams) (NotificationHeader, error) {
	return scanNotification(q.db.QueryRow(ctx, bumpNotificationTotalAvatars, arg.ID, arg.Delta))
}

const addNotificationAvatar = `
INSERT INTO notification_header_avatars (notification_id, avatar_id, position)
VALUES ($1, $2, $3)
ON CONFLICT (notification_id, avatar_id) DO NOTHING
`

type AddNotificationAvatarParams struct {
	NotificationID uuid.UUID `json:"notification_id"`
	AvatarID       uuid.UUID `json:"avatar_id"`
	Position       int32     `json:"position"`
}

func (q *Queries) AddNotificationAvatar(ctx context.Context, arg AddNotificationAvatarParams) error {
	_, err := q.db.Exec(ctx, addNotificationAvatar, arg.NotificationID, arg.AvatarID, arg.Position)
	return err
}

const listNotificationAvatarIDs = `
SELECT avatar_id
FROM notification_header_avatars
WHERE notification_id = $1
ORDER BY position
`

// ListNotificationAvatarIDs returns every linked contributor in display
// order, including contributors past the display cap.
func (q *Queries) ListNotificationAvatarIDs(ctx context.Context, notificationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listNotificationAvatarIDs, notificationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const listNotificationAvatars = `
SELECT a.id, a.kind, a.subject_id, a.name, a.image, a.target_url, a.created_at, a.updated_at
FROM notification_header_avatars l
JOIN notification_avatars a ON a.id = l.avatar_id
WHERE l.notification_id = $1
ORDER BY l.position
LIMIT $2
`

type ListNotificationAvatarsParams struct {
	NotificationID uuid.UUID `json:"notification_id"`
	DisplayLimit   int32     `json:"display_limit"`
}

// ListNotificationAvatars returns the displayed avatar list, capped at the
// per-type display limit. num_total_avatars on the header still reports the
// true contributor count.
func (q *Queries) ListNotificationAvatars(ctx context.Context, arg ListNotificationAvatarsParams) ([]NotificationAvatar, error) {
	rows, err := q.db.Query(ctx, listNotificationAvatars, arg.NotificationID, arg.DisplayLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []NotificationAvatar
	for rows.Next() {
		var i NotificationAvatar
		if err = rows.Scan(
			&i.ID,
			&i.Kind,
			&i.SubjectID,
			&i.Name,
			&i.Image,
			&i.TargetUrl,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listAvatarsForNotifications = `
SELECT t.notification_id, t.id, t.kind, t.subject_id, t.name, t.image, t.target_url, t.created_at, t.updated_at
FROM (
	SELECT l.notification_id, a.id, a.kind, a.subject_id, a.name, a.image, a.target_url, a.created_at, a.updated_at,
		row_number() OVER (PARTITION BY l.notification_id ORDER BY l.position) AS display_rank
	FROM notification_header_avatars l
	JOIN notification_avatars a ON a.id = l.avatar_id
	WHERE l.notification_id = ANY($1)
) t
WHERE t.display_rank <= $2
ORDER BY t.notification_id, t.display_rank
`

type ListAvatarsForNotificationsParams struct {
	NotificationIDs []uuid.UUID `json:"notification_ids"`
	DisplayLimit    int32       `json:"display_limit"`
}

type ListAvatarsForNotificationsRow struct {
	NotificationID uuid.UUID `json:"notification_id"`
	Avatar         NotificationAvatar
}

// ListAvatarsForNotifications loads the displayed avatars of a whole inbox
// page in one query, capped per notification.
func (q *Queries) ListAvatarsForNotifications(ctx context.Context, arg ListAvatarsForNotificationsParams) ([]ListAvatarsForNotificationsRow, error) {
	rows, err := q.db.Query(ctx, listAvatarsForNotifications, arg.NotificationIDs, arg.DisplayLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListAvatarsForNotificationsRow
	for rows.Next() {
		var i ListAvatarsForNotificationsRow
		if err = rows.Scan(
			&i.NotificationID,
			&i.Avatar.ID,
			&i.Avatar.Kind,
			&i.Avatar.SubjectID,
			&i.Avatar.Name,
			&i.Avatar.Image,
			&i.Avatar.TargetUrl,
			&i.Avatar.CreatedAt,
			&i.Avatar.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const addNotificationAttachment = `
INSERT INTO notification_header_attachments (notification_id, attachment_id, position)
VALUES ($1, $2, $3)
ON CONFLICT (notification_id, attachment_id) DO NOTHING
`

type AddNotificationAttachmentParams struct {
	NotificationID uuid.UUID `json:"notification_id"`
	AttachmentID   uuid.UUID `json:"attachment_id"`
	Position       int32     `json:"position"`
}

func (q *Queries) AddNotificationAttachment(ctx context.Context, arg AddNotificationAttachmentParams) error {
	_, err := q.db.Exec(ctx, addNotificationAttachment, arg.NotificationID, arg.AttachmentID, arg.Position)
	return err
}

const listNotificationAttachmentIDs = `
SELECT attachment_id
FROM notification_header_attachments
WHERE notification_id = $1
ORDER BY position
`

func (q *Queries) ListNotificationAttachmentIDs(ctx context.Context, notificationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listNotificationAttachmentIDs, notificationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const listNotificationAttachments = `
SELECT a.id, a.kind, a.subject_id, a.image, a.title, a.created_at, a.updated_at
FROM notification_header_attachments l
JOIN notification_attachments a ON a.id = l.attachment_id
WHERE l.notification_id = $1
ORDER BY l.position
`

func (q *Queries) ListNotificationAttachments(ctx context.Context, notificationID uuid.UUID) ([]NotificationAttachment, error) {
	rows, err := q.db.Query(ctx, listNotificationAttachments, notificationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []NotificationAttachment
	for rows.Next() {
		var i NotificationAttachment
		if err = rows.Scan(
			&i.ID,
			&i.Kind,
			&i.SubjectID,
			&i.Image,
			&i.Title,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listAttachmentsForNotifications = `
SELECT l.notification_id, a.id, a.kind, a.subject_id, a.image, a.title, a.created_at, a.updated_at
FROM notification_header_attachments l
JOIN notification_attachments a ON a.id = l.attachment_id
WHERE l.notification_id = ANY($1)
ORDER BY l.notification_id, l.position
`

type ListAttachmentsForNotificationsRow struct {
	NotificationID uuid.UUID `json:"notification_id"`
	Attachment     NotificationAttachment
}

// ListAttachmentsForNotifications loads the attachments of a whole inbox page
// in one query.
func (q *Queries) ListAttachmentsForNotifications(ctx context.Context, notificationIDs []uuid.UUID) ([]ListAttachmentsForNotificationsRow, error) {
	rows, err := q.db.Query(ctx, listAttachmentsForNotifications, notificationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListAttachmentsForNotificationsRow
	for rows.Next() {
		var i ListAttachmentsForNotificationsRow
		if err = rows.Scan(
			&i.NotificationID,
			&i.Attachment.ID,
			&i.Attachment.Kind,
			&i.Attachment.SubjectID,
			&i.Attachment.Image,
			&i.Attachment.Title,
			&i.Attachment.CreatedAt,
			&i.Attachment.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteNotificationsByReference = `
DELETE FROM notification_headers
WHERE reference_type = $1 AND reference_id = $2
RETURNING id
`

type DeleteNotificationsByReferenceParams struct {
	ReferenceType ReferenceType `json:"reference_type"`
	ReferenceID   string        `json:"reference_id"`
}

// DeleteNotificationsByReference removes every header pointing at the given
// entity. Link rows and delivery rows go with the header via FK cascade.
func (q *Queries) DeleteNotificationsByReference(ctx context.Context, arg DeleteNotificationsByReferenceParams) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, deleteNotificationsByReference, arg.ReferenceType, arg.ReferenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
