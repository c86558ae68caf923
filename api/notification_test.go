package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	db "github.com/tranvand/feedhub-BE/internal/db/sqlc"
	"github.com/tranvand/feedhub-BE/internal/token"
	"github.com/tranvand/feedhub-BE/internal/util"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubStore serves the inbox endpoints from fixed data. Methods the handlers
// under test never call are inherited from the nil embedded Store and panic
// if reached.
type stubStore struct {
	db.Store

	deliveries  []db.ListDeliveriesForUserRow
	listArgs    []db.ListDeliveriesForUserParams
	unreadCount int64

	avatarBatchCalls     int
	attachmentBatchCalls int

	markReadAffected int64
	getDeliveryErr   error
	markAllAffected  int64
}

func (s *stubStore) ListDeliveriesForUser(_ context.Context, arg db.ListDeliveriesForUserParams) ([]db.ListDeliveriesForUserRow, error) {
	s.listArgs = append(s.listArgs, arg)
	if int32(len(s.deliveries)) > arg.Limit {
		return s.deliveries[:arg.Limit], nil
	}
	return s.deliveries, nil
}

func (s *stubStore) ListAvatarsForNotifications(_ context.Context, _ db.ListAvatarsForNotificationsParams) ([]db.ListAvatarsForNotificationsRow, error) {
	s.avatarBatchCalls++
	return nil, nil
}

func (s *stubStore) ListAttachmentsForNotifications(_ context.Context, _ []uuid.UUID) ([]db.ListAttachmentsForNotificationsRow, error) {
	s.attachmentBatchCalls++
	return nil, nil
}

func (s *stubStore) CountUnreadDeliveries(_ context.Context, _ string) (int64, error) {
	return s.unreadCount, nil
}

func (s *stubStore) MarkDeliveryRead(_ context.Context, _ db.MarkDeliveryReadParams) (int64, error) {
	return s.markReadAffected, nil
}

func (s *stubStore) GetDelivery(_ context.Context, _ db.GetDeliveryParams) (db.NotificationDelivery, error) {
	if s.getDeliveryErr != nil {
		return db.NotificationDelivery{}, s.getDeliveryErr
	}
	return db.NotificationDelivery{}, nil
}

func (s *stubStore) MarkAllDeliveriesRead(_ context.Context, _ string) (int64, error) {
	return s.markAllAffected, nil
}

func newTestServer(t *testing.T, store db.Store) (*Server, string) {
	t.Helper()

	config := &util.Config{
		AllowedOrigins:      []string{"http://localhost:3000"},
		TokenSecretKey:      util.RandomString(32),
		AccessTokenDuration: time.Minute,
	}

	server, err := NewServer(store, nil, nil, config, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	maker, err := token.NewJWTMaker(config.TokenSecretKey)
	if err != nil {
		t.Fatalf("NewJWTMaker() error = %v", err)
	}
	accessToken, _, err := maker.CreateToken("u_reader", time.Minute)
	if err != nil {
		t.Fatalf("CreateToken() error = %v", err)
	}

	return server, accessToken
}

func authedRequest(method, url, accessToken string) *http.Request {
	request := httptest.NewRequest(method, url, nil)
	request.Header.Set("Authorization", "Bearer "+accessToken)
	return request
}

func deliveryRow(createdAt time.Time) db.ListDeliveriesForUserRow {
	id, _ := uuid.NewV7()
	return db.ListDeliveriesForUserRow{
		NotificationID:  id,
		UserID:          "u_reader",
		CreatedAt:       createdAt,
		Type:            db.NotificationTypeCommentReply,
		Title:           "replied to your comment",
		Icon:            "comment",
		TargetUrl:       "/posts/p1#c-c1",
		NumTotalAvatars: 1,
	}
}

func TestListNotificationsRequiresAuth(t *testing.T) {
	server, _ := newTestServer(t, &stubStore{})

	recorder := httptest.NewRecorder()
	server.router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/notifications", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
}

func TestListNotifications(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &stubStore{
		deliveries: []db.ListDeliveriesForUserRow{
			deliveryRow(base.Add(2 * time.Minute)),
			deliveryRow(base.Add(time.Minute)),
			deliveryRow(base),
		},
	}
	server, accessToken := newTestServer(t, store)

	recorder := httptest.NewRecorder()
	server.router.ServeHTTP(recorder, authedRequest(http.MethodGet, "/v1/notifications?limit=2", accessToken))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", recorder.Code, http.StatusOK, recorder.Body.String())
	}

	var resp listNotificationsResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Notifications) != 2 {
		t.Errorf("notifications = %d, want 2", len(resp.Notifications))
	}
	if resp.NextCursor == "" {
		t.Error("expected a next_cursor on a full page")
	}

	createdBefore, beforeID, err := decodeCursor(resp.NextCursor)
	if err != nil {
		t.Fatalf("decodeCursor() error = %v", err)
	}
	last := store.deliveries[1]
	if !createdBefore.Equal(last.CreatedAt) || beforeID != last.NotificationID {
		t.Errorf("cursor = (%v, %s), want the last row's keyset position", createdBefore, beforeID)
	}

	if got := store.listArgs[0].UserID; got != "u_reader" {
		t.Errorf("queried user = %s, want the token subject u_reader", got)
	}

	// Fragments are fetched once for the whole page, not once per row.
	if store.avatarBatchCalls != 1 || store.attachmentBatchCalls != 1 {
		t.Errorf("fragment queries = (%d, %d), want one avatar and one attachment batch per page",
			store.avatarBatchCalls, store.attachmentBatchCalls)
	}
}

func TestListNotificationsCursorPassedToQuery(t *testing.T) {
	store := &stubStore{}
	server, accessToken := newTestServer(t, store)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id, _ := uuid.NewV7()
	cursor := encodeCursor(at, id)

	recorder := httptest.NewRecorder()
	server.router.ServeHTTP(recorder, authedRequest(http.MethodGet, "/v1/notifications?cursor="+cursor, accessToken))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
	}

	arg := store.listArgs[0]
	if !arg.HasCursor || !arg.CreatedBefore.Equal(at) || arg.BeforeID != id {
		t.Errorf("query arg = %+v, want the decoded cursor position", arg)
	}
	if arg.Limit != defaultPageSize {
		t.Errorf("Limit = %d, want the default %d", arg.Limit, defaultPageSize)
	}
}

func TestListNotificationsRejectsBadCursor(t *testing.T) {
	server, accessToken := newTestServer(t, &stubStore{})

	recorder := httptest.NewRecorder()
	server.router.ServeHTTP(recorder, authedRequest(http.MethodGet, "/v1/notifications?cursor=%21%21not-base64", accessToken))

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", recorder.Code, http.StatusBadRequest)
	}
}

func TestCountUnreadNotifications(t *testing.T) {
	server, accessToken := newTestServer(t, &stubStore{unreadCount: 7})

	recorder := httptest.NewRecorder()
	server.router.ServeHTTP(recorder, authedRequest(http.MethodGet, "/v1/notifications/unread-count", accessToken))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
	}

	var resp struct {
		UnreadCount int64 `json:"unread_count"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.UnreadCount != 7 {
		t.Errorf("unread_count = %d, want 7", resp.UnreadCount)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	notificationID, _ := uuid.NewV7()

	testCases := []struct {
		name       string
		store      *stubStore
		wantStatus int
	}{
		{
			name:       "marks unread delivery",
			store:      &stubStore{markReadAffected: 1},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "already read is idempotent",
			store:      &stubStore{markReadAffected: 0},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "not this user's notification",
			store:      &stubStore{markReadAffected: 0, getDeliveryErr: db.ErrRecordNotFound},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server, accessToken := newTestServer(t, tc.store)

			url := fmt.Sprintf("/v1/notifications/%s/read", notificationID)
			recorder := httptest.NewRecorder()
			server.router.ServeHTTP(recorder, authedRequest(http.MethodPatch, url, accessToken))

			if recorder.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d: %s", recorder.Code, tc.wantStatus, recorder.Body.String())
			}
		})
	}
}

func TestMarkNotificationReadRejectsBadID(t *testing.T) {
	server, accessToken := newTestServer(t, &stubStore{})

	recorder := httptest.NewRecorder()
	server.router.ServeHTTP(recorder, authedRequest(http.MethodPatch, "/v1/notifications/not-a-uuid/read", accessToken))

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", recorder.Code, http.StatusBadRequest)
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	server, accessToken := newTestServer(t, &stubStore{markAllAffected: 3})

	recorder := httptest.NewRecorder()
	server.router.ServeHTTP(recorder, authedRequest(http.MethodPatch, "/v1/notifications/read-all", accessToken))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
	}

	var resp struct {
		MarkedRead int64 `json:"marked_read"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.MarkedRead != 3 {
		t.Errorf("marked_read = %d, want 3", resp.MarkedRead)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 15, 9, 30, 0, 123456789, time.UTC)
	id, _ := uuid.NewV7()

	gotAt, gotID, err := decodeCursor(encodeCursor(at, id))
	if err != nil {
		t.Fatalf("decodeCursor() error = %v", err)
	}
	if !gotAt.Equal(at) || gotID != id {
		t.Errorf("round trip = (%v, %s), want (%v, %s)", gotAt, gotID, at, id)
	}

	if _, _, err = decodeCursor("###"); err == nil {
		t.Error("expected an error for a malformed cursor")
	}
}
