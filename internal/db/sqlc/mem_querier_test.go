package db

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// memQuerier is an in-memory Querier with the same conflict and cascade
// semantics as the real schema. The bundle transaction logic only talks to
// the Querier interface, so it can run against this double without Postgres.
type memQuerier struct {
	clock time.Time

	avatars       map[uuid.UUID]NotificationAvatar
	attachments   map[uuid.UUID]NotificationAttachment
	notifications map[uuid.UUID]NotificationHeader

	avatarLinks     map[uuid.UUID][]fragmentLink
	attachmentLinks map[uuid.UUID][]fragmentLink
	deliveries      map[deliveryKey]NotificationDelivery
}

type fragmentLink struct {
	fragmentID uuid.UUID
	position   int32
}

type deliveryKey struct {
	notificationID uuid.UUID
	userID         string
}

func newMemQuerier() *memQuerier {
	return &memQuerier{
		clock:           time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		avatars:         make(map[uuid.UUID]NotificationAvatar),
		attachments:     make(map[uuid.UUID]NotificationAttachment),
		notifications:   make(map[uuid.UUID]NotificationHeader),
		avatarLinks:     make(map[uuid.UUID][]fragmentLink),
		attachmentLinks: make(map[uuid.UUID][]fragmentLink),
		deliveries:      make(map[deliveryKey]NotificationDelivery),
	}
}

var _ Querier = (*memQuerier)(nil)

// tick returns a strictly increasing timestamp so keyset ordering over
// created_at is deterministic in tests.
func (m *memQuerier) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memQuerier) GetAvatarBySubject(_ context.Context, arg GetAvatarBySubjectParams) (NotificationAvatar, error) {
	for _, a := range m.avatars {
		if a.Kind == arg.Kind && a.SubjectID == arg.SubjectID {
			return a, nil
		}
	}
	return NotificationAvatar{}, ErrRecordNotFound
}

func (m *memQuerier) InsertAvatar(ctx context.Context, arg InsertAvatarParams) (NotificationAvatar, error) {
	if _, err := m.GetAvatarBySubject(ctx, GetAvatarBySubjectParams{Kind: arg.Kind, SubjectID: arg.SubjectID}); err == nil {
		return NotificationAvatar{}, ErrRecordNotFound
	}
	now := m.tick()
	a := NotificationAvatar{
		ID:        arg.ID,
		Kind:      arg.Kind,
		SubjectID: arg.SubjectID,
		Name:      arg.Name,
		Image:     arg.Image,
		TargetUrl: arg.TargetUrl,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.avatars[a.ID] = a
	return a, nil
}

func (m *memQuerier) UpdateAvatarsBySubject(_ context.Context, arg UpdateAvatarsBySubjectParams) (int64, error) {
	var affected int64
	for id, a := range m.avatars {
		if a.Kind == arg.Kind && a.SubjectID == arg.SubjectID {
			a.Name = arg.Name
			a.Image = arg.Image
			a.TargetUrl = arg.TargetUrl
			a.UpdatedAt = m.tick()
			m.avatars[id] = a
			affected++
		}
	}
	return affected, nil
}

func (m *memQuerier) DeleteOrphanAvatars(_ context.Context) (int64, error) {
	referenced := make(map[uuid.UUID]bool)
	for _, links := range m.avatarLinks {
		for _, link := range links {
			referenced[link.fragmentID] = true
		}
	}
	var deleted int64
	for id := range m.avatars {
		if !referenced[id] {
			delete(m.avatars, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memQuerier) GetAttachmentBySubject(_ context.Context, arg GetAttachmentBySubjectParams) (NotificationAttachment, error) {
	for _, a := range m.attachments {
		if a.Kind == arg.Kind && a.SubjectID == arg.SubjectID {
			return a, nil
		}
	}
	return NotificationAttachment{}, ErrRecordNotFound
}

func (m *memQuerier) InsertAttachment(ctx context.Context, arg InsertAttachmentParams) (NotificationAttachment, error) {
	if _, err := m.GetAttachmentBySubject(ctx, GetAttachmentBySubjectParams{Kind: arg.Kind, SubjectID: arg.SubjectID}); err == nil {
		return NotificationAttachment{}, ErrRecordNotFound
	}
	now := m.tick()
	a := NotificationAttachment{
		ID:        arg.ID,
		Kind:      arg.Kind,
		SubjectID: arg.SubjectID,
		Image:     arg.Image,
		Title:     arg.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.attachments[a.ID] = a
	return a, nil
}

func (m *memQuerier) UpdateAttachment(_ context.Context, arg UpdateAttachmentParams) (int64, error) {
	a, ok := m.attachments[arg.ID]
	if !ok {
		return 0, nil
	}
	// Same uniqueness as the (kind, subject_id) index on the real table.
	for id, other := range m.attachments {
		if id != arg.ID && other.Kind == arg.Kind && other.SubjectID == a.SubjectID {
			return 0, errors.New(`duplicate key value violates unique constraint "notification_attachments_subject_key"`)
		}
	}
	a.Kind = arg.Kind
	a.Image = arg.Image
	a.UpdatedAt = m.tick()
	m.attachments[arg.ID] = a
	return 1, nil
}

func (m *memQuerier) RepointAttachmentLinks(_ context.Context, arg RepointAttachmentLinksParams) error {
	for notificationID, links := range m.attachmentLinks {
		kept := links[:0]
		hasTarget := false
		for _, link := range links {
			if link.fragmentID == arg.ToID {
				hasTarget = true
			}
		}
		for _, link := range links {
			if link.fragmentID != arg.FromID {
				kept = append(kept, link)
				continue
			}
			if !hasTarget {
				kept = append(kept, fragmentLink{fragmentID: arg.ToID, position: link.position})
				hasTarget = true
			}
		}
		m.attachmentLinks[notificationID] = kept
	}
	return nil
}

func (m *memQuerier) DeleteAttachment(_ context.Context, id uuid.UUID) error {
	delete(m.attachments, id)
	return nil
}

func (m *memQuerier) DeleteOrphanAttachments(_ context.Context) (int64, error) {
	referenced := make(map[uuid.UUID]bool)
	for _, links := range m.attachmentLinks {
		for _, link := range links {
			referenced[link.fragmentID] = true
		}
	}
	var deleted int64
	for id := range m.attachments {
		if !referenced[id] {
			delete(m.attachments, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memQuerier) GetNotificationByID(_ context.Context, id uuid.UUID) (NotificationHeader, error) {
	n, ok := m.notifications[id]
	if !ok {
		return NotificationHeader{}, ErrRecordNotFound
	}
	return n, nil
}

func (m *memQuerier) GetNotificationByTupleForUpdate(_ context.Context, arg GetNotificationByTupleParams) (NotificationHeader, error) {
	for _, n := range m.notifications {
		if n.Type == arg.Type && n.ReferenceID == arg.ReferenceID && n.ReferenceType == arg.ReferenceType && n.UniqueKey == arg.UniqueKey {
			return n, nil
		}
	}
	return NotificationHeader{}, ErrRecordNotFound
}

func (m *memQuerier) InsertNotification(ctx context.Context, arg InsertNotificationParams) (NotificationHeader, error) {
	tuple := GetNotificationByTupleParams{
		Type:          arg.Type,
		ReferenceID:   arg.ReferenceID,
		ReferenceType: arg.ReferenceType,
		UniqueKey:     arg.UniqueKey,
	}
	if _, err := m.GetNotificationByTupleForUpdate(ctx, tuple); err == nil {
		return NotificationHeader{}, ErrRecordNotFound
	}
	now := m.tick()
	n := NotificationHeader{
		ID:              arg.ID,
		Type:            arg.Type,
		Title:           arg.Title,
		Description:     arg.Description,
		Icon:            arg.Icon,
		TargetUrl:       arg.TargetUrl,
		IsPublic:        arg.IsPublic,
		ReferenceID:     arg.ReferenceID,
		ReferenceType:   arg.ReferenceType,
		UniqueKey:       arg.UniqueKey,
		NumTotalAvatars: arg.NumTotalAvatars,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	m.notifications[n.ID] = n
	return n, nil
}

func (m *memQuerier) BumpNotificationTotalAvatars(_ context.Context, arg BumpNotificationTotalAvatarsParams) (NotificationHeader, error) {
	n, ok := m.notifications[arg.ID]
	if !ok {
		return NotificationHeader{}, ErrRecordNotFound
	}
	n.NumTotalAvatars += arg.Delta
	n.UpdatedAt = m.tick()
	m.notifications[arg.ID] = n
	return n, nil
}

func (m *memQuerier) AddNotificationAvatar(_ context.Context, arg AddNotificationAvatarParams) error {
	for _, link := range m.avatarLinks[arg.NotificationID] {
		if link.fragmentID == arg.AvatarID {
			return nil
		}
	}
	m.avatarLinks[arg.NotificationID] = append(m.avatarLinks[arg.NotificationID], fragmentLink{
		fragmentID: arg.AvatarID,
		position:   arg.Position,
	})
	return nil
}

func (m *memQuerier) ListNotificationAvatarIDs(_ context.Context, notificationID uuid.UUID) ([]uuid.UUID, error) {
	links := sortedLinks(m.avatarLinks[notificationID])
	ids := make([]uuid.UUID, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.fragmentID)
	}
	return ids, nil
}

func (m *memQuerier) ListNotificationAvatars(_ context.Context, arg ListNotificationAvatarsParams) ([]NotificationAvatar, error) {
	links := sortedLinks(m.avatarLinks[arg.NotificationID])
	var items []NotificationAvatar
	for _, link := range links {
		if int32(len(items)) >= arg.DisplayLimit {
			break
		}
		items = append(items, m.avatars[link.fragmentID])
	}
	return items, nil
}

func (m *memQuerier) ListAvatarsForNotifications(_ context.Context, arg ListAvatarsForNotificationsParams) ([]ListAvatarsForNotificationsRow, error) {
	var items []ListAvatarsForNotificationsRow
	for _, notificationID := range arg.NotificationIDs {
		links := sortedLinks(m.avatarLinks[notificationID])
		for i, link := range links {
			if int32(i) >= arg.DisplayLimit {
				break
			}
			items = append(items, ListAvatarsForNotificationsRow{
				NotificationID: notificationID,
				Avatar:         m.avatars[link.fragmentID],
			})
		}
	}
	return items, nil
}

func (m *memQuerier) AddNotificationAttachment(_ context.Context, arg AddNotificationAttachmentParams) error {
	for _, link := range m.attachmentLinks[arg.NotificationID] {
		if link.fragmentID == arg.AttachmentID {
			return nil
		}
	}
	m.attachmentLinks[arg.NotificationID] = append(m.attachmentLinks[arg.NotificationID], fragmentLink{
		fragmentID: arg.AttachmentID,
		position:   arg.Position,
	})
	return nil
}

func (m *memQuerier) ListNotificationAttachmentIDs(_ context.Context, notificationID uuid.UUID) ([]uuid.UUID, error) {
	links := sortedLinks(m.attachmentLinks[notificationID])
	ids := make([]uuid.UUID, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.fragmentID)
	}
	return ids, nil
}

func (m *memQuerier) ListNotificationAttachments(_ context.Context, notificationID uuid.UUID) ([]NotificationAttachment, error) {
	links := sortedLinks(m.attachmentLinks[notificationID])
	var items []NotificationAttachment
	for _, link := range links {
		items = append(items, m.attachments[link.fragmentID])
	}
	return items, nil
}

func (m *memQuerier) ListAttachmentsForNotifications(_ context.Context, notificationIDs []uuid.UUID) ([]ListAttachmentsForNotificationsRow, error) {
	var items []ListAttachmentsForNotificationsRow
	for _, notificationID := range notificationIDs {
		for _, link := range sortedLinks(m.attachmentLinks[notificationID]) {
			items = append(items, ListAttachmentsForNotificationsRow{
				NotificationID: notificationID,
				Attachment:     m.attachments[link.fragmentID],
			})
		}
	}
	return items, nil
}

func (m *memQuerier) DeleteNotificationsByReference(_ context.Context, arg DeleteNotificationsByReferenceParams) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, n := range m.notifications {
		if n.ReferenceType == arg.ReferenceType && n.ReferenceID == arg.ReferenceID {
			ids = append(ids, id)
		}
	}
	// FK cascade: links and deliveries go with the header.
	for _, id := range ids {
		delete(m.notifications, id)
		delete(m.avatarLinks, id)
		delete(m.attachmentLinks, id)
		for key := range m.deliveries {
			if key.notificationID == id {
				delete(m.deliveries, key)
			}
		}
	}
	return ids, nil
}

func (m *memQuerier) InsertDelivery(_ context.Context, arg InsertDeliveryParams) (int64, error) {
	key := deliveryKey{notificationID: arg.NotificationID, userID: arg.UserID}
	if _, exists := m.deliveries[key]; exists {
		return 0, nil
	}
	m.deliveries[key] = NotificationDelivery{
		NotificationID: arg.NotificationID,
		UserID:         arg.UserID,
		IsPublic:       arg.IsPublic,
		CreatedAt:      m.tick(),
	}
	return 1, nil
}

func (m *memQuerier) GetDelivery(_ context.Context, arg GetDeliveryParams) (NotificationDelivery, error) {
	d, ok := m.deliveries[deliveryKey{notificationID: arg.NotificationID, userID: arg.UserID}]
	if !ok {
		return NotificationDelivery{}, ErrRecordNotFound
	}
	return d, nil
}

func (m *memQuerier) MarkDeliveryRead(_ context.Context, arg MarkDeliveryReadParams) (int64, error) {
	key := deliveryKey{notificationID: arg.NotificationID, userID: arg.UserID}
	d, ok := m.deliveries[key]
	if !ok || d.ReadAt != nil {
		return 0, nil
	}
	now := m.tick()
	d.ReadAt = &now
	m.deliveries[key] = d
	return 1, nil
}

func (m *memQuerier) MarkAllDeliveriesRead(_ context.Context, userID string) (int64, error) {
	var affected int64
	for key, d := range m.deliveries {
		if d.UserID == userID && d.ReadAt == nil {
			now := m.tick()
			d.ReadAt = &now
			m.deliveries[key] = d
			affected++
		}
	}
	return affected, nil
}

func (m *memQuerier) CountUnreadDeliveries(_ context.Context, userID string) (int64, error) {
	var count int64
	for _, d := range m.deliveries {
		if d.UserID == userID && d.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (m *memQuerier) ListDeliveriesForUser(_ context.Context, arg ListDeliveriesForUserParams) ([]ListDeliveriesForUserRow, error) {
	var rows []ListDeliveriesForUserRow
	for _, d := range m.deliveries {
		if d.UserID != arg.UserID {
			continue
		}
		if arg.HasCursor && !keysetBefore(d.CreatedAt, d.NotificationID, arg.CreatedBefore, arg.BeforeID) {
			continue
		}
		if arg.OnlyUnread && d.ReadAt != nil {
			continue
		}
		if arg.PublicOnly && !d.IsPublic {
			continue
		}
		n := m.notifications[d.NotificationID]
		rows = append(rows, ListDeliveriesForUserRow{
			NotificationID:  d.NotificationID,
			UserID:          d.UserID,
			IsPublic:        d.IsPublic,
			CreatedAt:       d.CreatedAt,
			ReadAt:          d.ReadAt,
			Type:            n.Type,
			Title:           n.Title,
			Description:     n.Description,
			Icon:            n.Icon,
			TargetUrl:       n.TargetUrl,
			NumTotalAvatars: n.NumTotalAvatars,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return bytes.Compare(rows[i].NotificationID[:], rows[j].NotificationID[:]) > 0
	})
	if int32(len(rows)) > arg.Limit {
		rows = rows[:arg.Limit]
	}
	return rows, nil
}

func (m *memQuerier) PurgeReadDeliveriesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	for key, d := range m.deliveries {
		if d.ReadAt != nil && d.ReadAt.Before(cutoff) {
			delete(m.deliveries, key)
			purged++
		}
	}
	return purged, nil
}

func sortedLinks(links []fragmentLink) []fragmentLink {
	sorted := make([]fragmentLink, len(links))
	copy(sorted, links)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].position < sorted[j].position })
	return sorted
}

// keysetBefore implements the row comparison (createdAt, id) < (beforeAt, beforeID).
func keysetBefore(createdAt time.Time, id uuid.UUID, beforeAt time.Time, beforeID uuid.UUID) bool {
	if createdAt.Before(beforeAt) {
		return true
	}
	if createdAt.Equal(beforeAt) {
		return bytes.Compare(id[:], beforeID[:]) < 0
	}
	return false
}
