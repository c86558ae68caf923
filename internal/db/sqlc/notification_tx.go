package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type StoreBundleTxParams struct {
	Bundle NotificationBundle
	// MergeCapable is the per-type bundling policy, decided by the builder
	// layer. Merge-capable types accumulate contributors on the existing
	// header; other types treat a redelivered tuple as a no-op.
	MergeCapable bool
}

type StoreBundleTxResult struct {
	Notification NotificationHeader `json:"notification"`
	Created      bool               `json:"created"`
	Merged       bool               `json:"merged"`
	// NewDeliveries lists the recipients that got a delivery row in this
	// call. Empty on pure redelivery.
	NewDeliveries []string `json:"new_deliveries"`
}

// StoreBundleTx persists a notification bundle inside a single transaction:
// fragments are reused or created by (kind, subject_id), the header is
// upserted on its uniqueness tuple, and one delivery row is written per
// recipient. The whole bundle commits or none of it does, so upstream retry
// after a transient failure is always safe.
func (store *SQLStore) StoreBundleTx(ctx context.Context, arg StoreBundleTxParams) (StoreBundleTxResult, error) {
	var result StoreBundleTxResult

	err := store.ExecTx(ctx, func(qTx *Queries) error {
		var txErr error
		result, txErr = storeBundle(ctx, qTx, arg)
		return txErr
	})

	return result, err
}

func storeBundle(ctx context.Context, q Querier, arg StoreBundleTxParams) (StoreBundleTxResult, error) {
	var result StoreBundleTxResult
	bundle := arg.Bundle

	if len(bundle.Recipients) == 0 {
		return result, ErrNoRecipients
	}

	// 1. Resolve fragments. Content is never overwritten here; refreshing
	// stale fragment snapshots is the consistency maintainer's job.
	avatarIDs := make([]uuid.UUID, 0, len(bundle.Avatars))
	for _, draft := range bundle.Avatars {
		id, err := ensureAvatar(ctx, q, draft)
		if err != nil {
			return result, fmt.Errorf("failed to resolve avatar fragment (%s, %s): %w", draft.Kind, draft.SubjectID, err)
		}
		avatarIDs = append(avatarIDs, id)
	}

	attachmentIDs := make([]uuid.UUID, 0, len(bundle.Attachments))
	for _, draft := range bundle.Attachments {
		id, err := ensureAttachment(ctx, q, draft)
		if err != nil {
			return result, fmt.Errorf("failed to resolve attachment fragment (%s, %s): %w", draft.Kind, draft.SubjectID, err)
		}
		attachmentIDs = append(attachmentIDs, id)
	}

	// A bundle may name the same contributor twice (drafts with one subject
	// resolve to one fragment). The link table stores one row per contributor,
	// so the accounting below must count one as well.
	avatarIDs = dedupeUUIDs(avatarIDs)
	attachmentIDs = dedupeUUIDs(attachmentIDs)

	// 2. Upsert the header on its uniqueness tuple.
	tuple := GetNotificationByTupleParams{
		Type:          bundle.Header.Type,
		ReferenceID:   bundle.Header.ReferenceID,
		ReferenceType: bundle.Header.ReferenceType,
		UniqueKey:     bundle.Header.UniqueKey,
	}

	notification, err := q.GetNotificationByTupleForUpdate(ctx, tuple)
	switch {
	case err == nil:
	case errors.Is(err, ErrRecordNotFound):
		notificationID, _ := uuid.NewV7()
		notification, err = q.InsertNotification(ctx, InsertNotificationParams{
			ID:              notificationID,
			Type:            bundle.Header.Type,
			Title:           bundle.Header.Title,
			Description:     bundle.Header.Description,
			Icon:            bundle.Header.Icon,
			TargetUrl:       bundle.Header.TargetUrl,
			IsPublic:        bundle.Header.IsPublic,
			ReferenceID:     bundle.Header.ReferenceID,
			ReferenceType:   bundle.Header.ReferenceType,
			UniqueKey:       bundle.Header.UniqueKey,
			NumTotalAvatars: int32(len(avatarIDs)),
		})
		if errors.Is(err, ErrRecordNotFound) {
			// Lost the insert race: another worker committed the header
			// between our read and insert. Re-read the winner and fall
			// through to the merge/no-op path.
			notification, err = q.GetNotificationByTupleForUpdate(ctx, tuple)
			if err != nil {
				return result, fmt.Errorf("failed to re-read notification after insert race: %w", err)
			}
		} else if err != nil {
			return result, fmt.Errorf("failed to insert notification: %w", err)
		} else {
			result.Created = true
		}
	default:
		return result, fmt.Errorf("failed to get notification: %w", err)
	}

	if result.Created {
		for i, avatarID := range avatarIDs {
			if err = q.AddNotificationAvatar(ctx, AddNotificationAvatarParams{
				NotificationID: notification.ID,
				AvatarID:       avatarID,
				Position:       int32(i),
			}); err != nil {
				return result, fmt.Errorf("failed to link avatar: %w", err)
			}
		}
		for i, attachmentID := range attachmentIDs {
			if err = q.AddNotificationAttachment(ctx, AddNotificationAttachmentParams{
				NotificationID: notification.ID,
				AttachmentID:   attachmentID,
				Position:       int32(i),
			}); err != nil {
				return result, fmt.Errorf("failed to link attachment: %w", err)
			}
		}
	} else if arg.MergeCapable {
		notification, result.Merged, err = mergeContributors(ctx, q, notification, avatarIDs, attachmentIDs)
		if err != nil {
			return result, err
		}
	}

	// 3. Fan out delivery rows, one per recipient, idempotently.
	for _, userID := range bundle.Recipients {
		inserted, err := q.InsertDelivery(ctx, InsertDeliveryParams{
			NotificationID: notification.ID,
			UserID:         userID,
			IsPublic:       notification.IsPublic,
		})
		if err != nil {
			return result, fmt.Errorf("failed to insert delivery for user %s: %w", userID, err)
		}
		if inserted > 0 {
			result.NewDeliveries = append(result.NewDeliveries, userID)
		}
	}

	result.Notification = notification
	return result, nil
}

// mergeContributors appends the contributors the existing header does not
// know yet. Every new logical contributor increments num_total_avatars, even
// past the display cap; the cap is applied when the avatar list is read.
func mergeContributors(ctx context.Context, q Querier, notification NotificationHeader, avatarIDs, attachmentIDs []uuid.UUID) (NotificationHeader, bool, error) {
	existingAvatars, err := q.ListNotificationAvatarIDs(ctx, notification.ID)
	if err != nil {
		return notification, false, fmt.Errorf("failed to list linked avatars: %w", err)
	}

	newContributors := 0
	position := len(existingAvatars)
	for _, avatarID := range avatarIDs {
		if containsUUID(existingAvatars, avatarID) {
			continue
		}
		if err = q.AddNotificationAvatar(ctx, AddNotificationAvatarParams{
			NotificationID: notification.ID,
			AvatarID:       avatarID,
			Position:       int32(position),
		}); err != nil {
			return notification, false, fmt.Errorf("failed to link avatar: %w", err)
		}
		position++
		newContributors++
	}

	existingAttachments, err := q.ListNotificationAttachmentIDs(ctx, notification.ID)
	if err != nil {
		return notification, false, fmt.Errorf("failed to list linked attachments: %w", err)
	}
	attachmentPosition := len(existingAttachments)
	for _, attachmentID := range attachmentIDs {
		if containsUUID(existingAttachments, attachmentID) {
			continue
		}
		if err = q.AddNotificationAttachment(ctx, AddNotificationAttachmentParams{
			NotificationID: notification.ID,
			AttachmentID:   attachmentID,
			Position:       int32(attachmentPosition),
		}); err != nil {
			return notification, false, fmt.Errorf("failed to link attachment: %w", err)
		}
		attachmentPosition++
	}

	if newContributors == 0 {
		return notification, false, nil
	}

	notification, err = q.BumpNotificationTotalAvatars(ctx, BumpNotificationTotalAvatarsParams{
		ID:    notification.ID,
		Delta: int32(newContributors),
	})
	if err != nil {
		return notification, false, fmt.Errorf("failed to bump contributor total: %w", err)
	}
	return notification, true, nil
}

// ensureAvatar reuses the live fragment for (kind, subject_id) or creates
// it. A unique-constraint race against a concurrent worker is resolved by
// re-reading the row the winner inserted.
func ensureAvatar(ctx context.Context, q Querier, draft AvatarDraft) (uuid.UUID, error) {
	existing, err := q.GetAvatarBySubject(ctx, GetAvatarBySubjectParams{Kind: draft.Kind, SubjectID: draft.SubjectID})
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return uuid.Nil, err
	}

	avatarID, _ := uuid.NewV7()
	created, err := q.InsertAvatar(ctx, InsertAvatarParams{
		ID:        avatarID,
		Kind:      draft.Kind,
		SubjectID: draft.SubjectID,
		Name:      draft.Name,
		Image:     draft.Image,
		TargetUrl: draft.TargetUrl,
	})
	if err == nil {
		return created.ID, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return uuid.Nil, err
	}

	existing, err = q.GetAvatarBySubject(ctx, GetAvatarBySubjectParams{Kind: draft.Kind, SubjectID: draft.SubjectID})
	if err != nil {
		return uuid.Nil, err
	}
	return existing.ID, nil
}

func ensureAttachment(ctx context.Context, q Querier, draft AttachmentDraft) (uuid.UUID, error) {
	existing, err := q.GetAttachmentBySubject(ctx, GetAttachmentBySubjectParams{Kind: draft.Kind, SubjectID: draft.SubjectID})
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return uuid.Nil, err
	}

	attachmentID, _ := uuid.NewV7()
	created, err := q.InsertAttachment(ctx, InsertAttachmentParams{
		ID:        attachmentID,
		Kind:      draft.Kind,
		SubjectID: draft.SubjectID,
		Image:     draft.Image,
		Title:     draft.Title,
	})
	if err == nil {
		return created.ID, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return uuid.Nil, err
	}

	existing, err = q.GetAttachmentBySubject(ctx, GetAttachmentBySubjectParams{Kind: draft.Kind, SubjectID: draft.SubjectID})
	if err != nil {
		return uuid.Nil, err
	}
	return existing.ID, nil
}

func containsUUID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// dedupeUUIDs drops repeated IDs, keeping first-occurrence order.
func dedupeUUIDs(ids []uuid.UUID) []uuid.UUID {
	result := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !containsUUID(result, id) {
			result = append(result, id)
		}
	}
	return result
}
