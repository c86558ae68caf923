package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	db "github.com/tranvand/feedhub-BE/internal/db/sqlc"
	"github.com/tranvand/feedhub-BE/internal/notify"
)

const (
	defaultPageSize   = 20
	maxPageSize       = 100
	unreadCountTTL    = 30 * time.Second
	unreadCachePrefix = "notifications:unread:"
)

type listNotificationsRequest struct {
	Limit      int32  `form:"limit"`
	Cursor     string `form:"cursor"`
	OnlyUnread bool   `form:"only_unread"`
	PublicOnly bool   `form:"public_only"`
}

type notificationResponse struct {
	ID              uuid.UUID                   `json:"id"`
	Type            db.NotificationType         `json:"type"`
	Title           string                      `json:"title"`
	Description     *string                     `json:"description,omitempty"`
	Icon            string                      `json:"icon"`
	TargetUrl       string                      `json:"target_url"`
	IsPublic        bool                        `json:"is_public"`
	NumTotalAvatars int32                       `json:"num_total_avatars"`
	Avatars         []db.NotificationAvatar     `json:"avatars"`
	Attachments     []db.NotificationAttachment `json:"attachments"`
	CreatedAt       time.Time                   `json:"created_at"`
	ReadAt          *time.Time                  `json:"read_at,omitempty"`
}

type listNotificationsResponse struct {
	Notifications []notificationResponse `json:"notifications"`
	NextCursor    string                 `json:"next_cursor,omitempty"`
}

func (server *Server) listNotifications(ctx *gin.Context) {
	userID := authenticatedUserID(ctx)

	var req listNotificationsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	if req.Limit <= 0 {
		req.Limit = defaultPageSize
	}
	if req.Limit > maxPageSize {
		req.Limit = maxPageSize
	}

	arg := db.ListDeliveriesForUserParams{
		UserID:     userID,
		OnlyUnread: req.OnlyUnread,
		PublicOnly: req.PublicOnly,
		Limit:      req.Limit,
	}

	if req.Cursor != "" {
		createdBefore, beforeID, err := decodeCursor(req.Cursor)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse(ErrInvalidCursor))
			return
		}
		arg.HasCursor = true
		arg.CreatedBefore = createdBefore
		arg.BeforeID = beforeID
	}

	rows, err := server.dbStore.ListDeliveriesForUser(ctx, arg)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	// Fragments load once per page, not once per row.
	notificationIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		notificationIDs = append(notificationIDs, row.NotificationID)
	}

	avatarsByID := make(map[uuid.UUID][]db.NotificationAvatar)
	attachmentsByID := make(map[uuid.UUID][]db.NotificationAttachment)
	if len(notificationIDs) > 0 {
		avatarRows, err := server.dbStore.ListAvatarsForNotifications(ctx, db.ListAvatarsForNotificationsParams{
			NotificationIDs: notificationIDs,
			DisplayLimit:    notify.AvatarDisplayCap,
		})
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, errorResponse(err))
			return
		}
		for _, r := range avatarRows {
			avatarsByID[r.NotificationID] = append(avatarsByID[r.NotificationID], r.Avatar)
		}

		attachmentRows, err := server.dbStore.ListAttachmentsForNotifications(ctx, notificationIDs)
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, errorResponse(err))
			return
		}
		for _, r := range attachmentRows {
			attachmentsByID[r.NotificationID] = append(attachmentsByID[r.NotificationID], r.Attachment)
		}
	}

	resp := listNotificationsResponse{
		Notifications: make([]notificationResponse, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Notifications = append(resp.Notifications, notificationResponse{
			ID:              row.NotificationID,
			Type:            row.Type,
			Title:           row.Title,
			Description:     row.Description,
			Icon:            row.Icon,
			TargetUrl:       row.TargetUrl,
			IsPublic:        row.IsPublic,
			NumTotalAvatars: row.NumTotalAvatars,
			Avatars:         avatarsByID[row.NotificationID],
			Attachments:     attachmentsByID[row.NotificationID],
			CreatedAt:       row.CreatedAt,
			ReadAt:          row.ReadAt,
		})
	}

	if len(rows) == int(req.Limit) {
		last := rows[len(rows)-1]
		resp.NextCursor = encodeCursor(last.CreatedAt, last.NotificationID)
	}

	ctx.JSON(http.StatusOK, resp)
}

func (server *Server) countUnreadNotifications(ctx *gin.Context) {
	userID := authenticatedUserID(ctx)
	cacheKey := unreadCachePrefix + userID

	if server.redisClient != nil {
		if cached, err := server.redisClient.Get(ctx, cacheKey).Int64(); err == nil {
			ctx.JSON(http.StatusOK, gin.H{"unread_count": cached})
			return
		}
	}

	count, err := server.dbStore.CountUnreadDeliveries(ctx, userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	if server.redisClient != nil {
		if err = server.redisClient.Set(ctx, cacheKey, count, unreadCountTTL).Err(); err != nil {
			log.Warn().Err(err).Msg("failed to cache unread count")
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (server *Server) markNotificationRead(ctx *gin.Context) {
	userID := authenticatedUserID(ctx)

	notificationID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid notification ID format")))
		return
	}

	affected, err := server.dbStore.MarkDeliveryRead(ctx, db.MarkDeliveryReadParams{
		NotificationID: notificationID,
		UserID:         userID,
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	if affected == 0 {
		// Already read, or not this user's notification. Only the latter is
		// an error: marking read twice is idempotent.
		_, err = server.dbStore.GetDelivery(ctx, db.GetDeliveryParams{
			NotificationID: notificationID,
			UserID:         userID,
		})
		if err != nil {
			if errors.Is(err, db.ErrRecordNotFound) {
				ctx.JSON(http.StatusNotFound, errorResponse(ErrNotificationNotFound))
				return
			}
			ctx.JSON(http.StatusInternalServerError, errorResponse(err))
			return
		}
	}

	server.invalidateUnreadCount(ctx, userID)
	ctx.Status(http.StatusNoContent)
}

func (server *Server) markAllNotificationsRead(ctx *gin.Context) {
	userID := authenticatedUserID(ctx)

	affected, err := server.dbStore.MarkAllDeliveriesRead(ctx, userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	server.invalidateUnreadCount(ctx, userID)
	ctx.JSON(http.StatusOK, gin.H{"marked_read": affected})
}

func (server *Server) invalidateUnreadCount(ctx *gin.Context, userID string) {
	if server.redisClient == nil {
		return
	}
	if err := server.redisClient.Del(ctx, unreadCachePrefix+userID).Err(); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate unread count cache")
	}
}

// encodeCursor packs the keyset position (created_at, notification_id) into
// an opaque token.
func encodeCursor(createdAt time.Time, notificationID uuid.UUID) string {
	raw := fmt.Sprintf("%d:%s", createdAt.UnixNano(), notificationID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}

	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, ErrInvalidCursor
	}

	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}

	notificationID, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, err
	}

	return time.Unix(0, nanos), notificationID, nil
}
