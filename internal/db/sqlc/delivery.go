package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const insertDelivery = `
INSERT INTO notification_deliveries (notification_id, user_id, is_public)
VALUES ($1, $2, $3)
ON CONFLICT (notification_id, user_id) DO NOTHING
`

type InsertDeliveryParams struct {
	NotificationID uuid.UUID `json:"notification_id"`
	UserID         string    `json:"user_id"`
	IsPublic       bool      `json:"is_public"`
}

// InsertDelivery creates the per-recipient ledger row once; redelivered
// events hit the composite primary key and change nothing.
func (q *Queries) InsertDelivery(ctx context.Context, arg InsertDeliveryParams) (int64, error) {
	result, err := q.db.Exec(ctx, insertDelivery, arg.NotificationID, arg.UserID, arg.IsPublic)
	return result.RowsAffected(), err
}

const getDelivery = `
SELECT notification_id, user_id, is_public, created_at, read_at
FROM notification_deliveries
WHERE notification_id = $1 AND user_id = $2
`

type GetDeliveryParams struct {
	NotificationID uuid.UUID `json:"notification_id"`
	UserID         string    `json:"user_id"`
}

func (q *Queries) GetDelivery(ctx context.Context, arg GetDeliveryParams) (NotificationDelivery, error) {
	row := q.db.QueryRow(ctx, getDelivery, arg.NotificationID, arg.UserID)
	var i NotificationDelivery
	err := row.Scan(&i.NotificationID, &i.UserID, &i.IsPublic, &i.CreatedAt, &i.ReadAt)
	return i, err
}

const markDeliveryRead = `
UPDATE notification_deliveries
SET read_at = now()
WHERE notification_id = $1 AND user_id = $2 AND read_at IS NULL
`

type MarkDeliveryReadParams struct {
	NotificationID uuid.UUID `json:"notification_id"`
	UserID         string    `json:"user_id"`
}

// MarkDeliveryRead sets read_at once; marking an already-read delivery is a
// no-op and reports zero affected rows.
func (q *Queries) MarkDeliveryRead(ctx context.Context, arg MarkDeliveryReadParams) (int64, error) {
	result, err := q.db.Exec(ctx, markDeliveryRead, arg.NotificationID, arg.UserID)
	return result.RowsAffected(), err
}

const markAllDeliveriesRead = `
UPDATE notification_deliveries
SET read_at = now()
WHERE user_id = $1 AND read_at IS NULL
`

func (q *Queries) MarkAllDeliveriesRead(ctx context.Context, userID string) (int64, error) {
	result, err := q.db.Exec(ctx, markAllDeliveriesRead, userID)
	return result.RowsAffected(), err
}

const countUnreadDeliveries = `
SELECT count(*)
FROM notification_deliveries
WHERE user_id = $1 AND read_at IS NULL
`

func (q *Queries) CountUnreadDeliveries(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countUnreadDeliveries, userID).Scan(&count)
	return count, err
}

const listDeliveriesForUser = `
SELECT d.notification_id, d.user_id, d.is_public, d.created_at, d.read_at,
	n.type, n.title, n.description, n.icon, n.target_url, n.num_total_avatars
FROM notification_deliveries d
JOIN notification_headers n ON n.id = d.notification_id
WHERE d.user_id = $1
	AND (NOT $2::bool OR (d.created_at, d.notification_id) < ($3, $4))
	AND (NOT $5::bool OR d.read_at IS NULL)
	AND (NOT $6::bool OR d.is_public)
ORDER BY d.created_at DESC, d.notification_id DESC
LIMIT $7
`

type ListDeliveriesForUserParams struct {
	UserID        string    `json:"user_id"`
	HasCursor     bool      `json:"has_cursor"`
	CreatedBefore time.Time `json:"created_before"`
	BeforeID      uuid.UUID `json:"before_id"`
	OnlyUnread    bool      `json:"only_unread"`
	PublicOnly    bool      `json:"public_only"`
	Limit         int32     `json:"limit"`
}

type ListDeliveriesForUserRow struct {
	NotificationID  uuid.UUID        `json:"notification_id"`
	UserID          string           `json:"user_id"`
	IsPublic        bool             `json:"is_public"`
	CreatedAt       time.Time        `json:"created_at"`
	ReadAt          *time.Time       `json:"read_at"`
	Type            NotificationType `json:"type"`
	Title           string           `json:"title"`
	Description     *string          `json:"description"`
	Icon            string           `json:"icon"`
	TargetUrl       string           `json:"target_url"`
	NumTotalAvatars int32            `json:"num_total_avatars"`
}

// ListDeliveriesForUser pages a user's inbox in reverse-chronological order
// with a keyset cursor over (created_at, notification_id). Recipient scoping
// lives entirely here: no delivery row, no notification.
func (q *Queries) ListDeliveriesForUser(ctx context.Context, arg ListDeliveriesForUserParams) ([]ListDeliveriesForUserRow, error) {
	rows, err := q.db.Query(ctx, listDeliveriesForUser,
		arg.UserID,
		arg.HasCursor,
		arg.CreatedBefore,
		arg.BeforeID,
		arg.OnlyUnread,
		arg.PublicOnly,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListDeliveriesForUserRow
	for rows.Next() {
		var i ListDeliveriesForUserRow
		if err = rows.Scan(
			&i.NotificationID,
			&i.UserID,
			&i.IsPublic,
			&i.CreatedAt,
			&i.ReadAt,
			&i.Type,
			&i.Title,
			&i.Description,
			&i.Icon,
			&i.TargetUrl,
			&i.NumTotalAvatars,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const purgeReadDeliveriesBefore = `
DELETE FROM notification_deliveries
WHERE read_at IS NOT NULL AND read_at < $1
`

// PurgeReadDeliveriesBefore drops read ledger rows older than the retention
// cutoff. Unread deliveries are never purged.
func (q *Queries) PurgeReadDeliveriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := q.db.Exec(ctx, purgeReadDeliveriesBefore, cutoff)
	return result.RowsAffected(), err
}
