package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Querier interface {
	GetAvatarBySubject(ctx context.Context, arg GetAvatarBySubjectParams) (NotificationAvatar, error)
	InsertAvatar(ctx context.Context, arg InsertAvatarParams) (NotificationAvatar, error)
	UpdateAvatarsBySubject(ctx context.Context, arg UpdateAvatarsBySubjectParams) (int64, error)
	DeleteOrphanAvatars(ctx context.Context) (int64, error)
	GetAttachmentBySubject(ctx context.Context, arg GetAttachmentBySubjectParams) (NotificationAttachment, error)
	InsertAttachment(ctx context.Context, arg InsertAttachmentParams) (NotificationAttachment, error)
	UpdateAttachment(ctx context.Context, arg UpdateAttachmentParams) (int64, error)
	RepointAttachmentLinks(ctx context.Context, arg RepointAttachmentLinksParams) error
	DeleteAttachment(ctx context.Context, id uuid.UUID) error
	DeleteOrphanAttachments(ctx context.Context) (int64, error)
	GetNotificationByID(ctx context.Context, id uuid.UUID) (NotificationHeader, error)
	GetNotificationByTupleForUpdate(ctx context.Context, arg GetNotificationByTupleParams) (NotificationHeader, error)
	InsertNotification(ctx context.Context, arg InsertNotificationParams) (NotificationHeader, error)
	BumpNotificationTotalAvatars(ctx context.Context, arg BumpNotificationTotalAvatarsParams) (NotificationHeader, error)
	AddNotificationAvatar(ctx context.Context, arg AddNotificationAvatarParams) error
	ListNotificationAvatarIDs(ctx context.Context, notificationID uuid.UUID) ([]uuid.UUID, error)
	ListNotificationAvatars(ctx context.Context, arg ListNotificationAvatarsParams) ([]NotificationAvatar, error)
	ListAvatarsForNotifications(ctx context.Context, arg ListAvatarsForNotificationsParams) ([]ListAvatarsForNotificationsRow, error)
	AddNotificationAttachment(ctx context.Context, arg AddNotificationAttachmentParams) error
	ListNotificationAttachmentIDs(ctx context.Context, notificationID uuid.UUID) ([]uuid.UUID, error)
	ListNotificationAttachments(ctx context.Context, notificationID uuid.UUID) ([]NotificationAttachment, error)
	ListAttachmentsForNotifications(ctx context.Context, notificationIDs []uuid.UUID) ([]ListAttachmentsForNotificationsRow, error)
	DeleteNotificationsByReference(ctx context.Context, arg DeleteNotificationsByReferenceParams) ([]uuid.UUID, error)
	InsertDelivery(ctx context.Context, arg InsertDeliveryParams) (int64, error)
	GetDelivery(ctx context.Context, arg GetDeliveryParams) (NotificationDelivery, error)
	MarkDeliveryRead(ctx context.Context, arg MarkDeliveryReadParams) (int64, error)
	MarkAllDeliveriesRead(ctx context.Context, userID string) (int64, error)
	CountUnreadDeliveries(ctx context.Context, userID string) (int64, error)
	ListDeliveriesForUser(ctx context.Context, arg ListDeliveriesForUserParams) ([]ListDeliveriesForUserRow, error)
	PurgeReadDeliveriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

var _ Querier = (*Queries)(nil)
