package maintainer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	db "github.com/tranvand/feedhub-BE/internal/db/sqlc"
	"github.com/tranvand/feedhub-BE/internal/notify"
)

// Maintainer keeps shared fragments and notification headers consistent as
// source entities change. Its rules react to entity mutations, never to the
// notification write path, and every rule is idempotent so the at-least-once
// event transport can redeliver freely.
type Maintainer struct {
	store db.Store
}

func New(store db.Store) *Maintainer {
	return &Maintainer{store: store}
}

type UserProfileChange struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Handle string `json:"handle"`
	Image  string `json:"image"`
}

// ApplyUserProfileChange refreshes every avatar fragment embedding the user:
// one username change propagates to every notification that shows them.
func (m *Maintainer) ApplyUserProfileChange(ctx context.Context, change UserProfileChange) error {
	if change.UserID == "" {
		return fmt.Errorf("user profile change is missing the user ID")
	}

	affected, err := m.store.UpdateAvatarsBySubject(ctx, db.UpdateAvatarsBySubjectParams{
		Kind:      db.AvatarKindUser,
		SubjectID: change.UserID,
		Name:      change.Name,
		Image:     change.Image,
		TargetUrl: notify.UserProfileURL(change.Handle),
	})
	if err != nil {
		return fmt.Errorf("failed to propagate user profile change: %w", err)
	}

	log.Info().Str("user_id", change.UserID).Int64("avatars_updated", affected).Msg("propagated user profile change")
	return nil
}

type SourceChange struct {
	SourceID string `json:"source_id"`
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	Image    string `json:"image"`
	IsSquad  bool   `json:"is_squad"`
}

// ApplySourceChange refreshes every avatar fragment embedding the source.
func (m *Maintainer) ApplySourceChange(ctx context.Context, change SourceChange) error {
	if change.SourceID == "" {
		return fmt.Errorf("source change is missing the source ID")
	}

	affected, err := m.store.UpdateAvatarsBySubject(ctx, db.UpdateAvatarsBySubjectParams{
		Kind:      db.AvatarKindSource,
		SubjectID: change.SourceID,
		Name:      change.Name,
		Image:     change.Image,
		TargetUrl: notify.SourceURL(change.Handle, change.IsSquad),
	})
	if err != nil {
		return fmt.Errorf("failed to propagate source change: %w", err)
	}

	log.Info().Str("source_id", change.SourceID).Int64("avatars_updated", affected).Msg("propagated source change")
	return nil
}

type PostChange struct {
	PostID  string `json:"post_id"`
	Image   string `json:"image"`
	IsVideo bool   `json:"is_video"`
}

// ApplyPostChange recomputes the kind and image of the attachment fragment
// embedding the post. A stale-kind duplicate fragment, left behind when an
// event carrying the new kind raced this propagation, is folded in here.
func (m *Maintainer) ApplyPostChange(ctx context.Context, change PostChange) error {
	if change.PostID == "" {
		return fmt.Errorf("post change is missing the post ID")
	}

	kind := db.AttachmentKindPost
	if change.IsVideo {
		kind = db.AttachmentKindVideo
	}

	affected, err := m.store.PropagatePostAttachmentTx(ctx, db.PropagatePostAttachmentTxParams{
		SubjectID: change.PostID,
		Kind:      kind,
		Image:     change.Image,
	})
	if err != nil {
		return fmt.Errorf("failed to propagate post change: %w", err)
	}

	log.Info().Str("post_id", change.PostID).Int64("attachments_updated", affected).Msg("propagated post change")
	return nil
}

// ApplyPostDeleted removes every notification header referencing the post,
// together with its delivery rows.
func (m *Maintainer) ApplyPostDeleted(ctx context.Context, postID string) error {
	if postID == "" {
		return fmt.Errorf("post deletion is missing the post ID")
	}

	deleted, err := m.store.DeleteNotificationsByReference(ctx, db.DeleteNotificationsByReferenceParams{
		ReferenceType: db.ReferenceTypePost,
		ReferenceID:   postID,
	})
	if err != nil {
		return fmt.Errorf("failed to cascade post deletion: %w", err)
	}

	log.Info().Str("post_id", postID).Int("notifications_deleted", len(deleted)).Msg("cascaded post deletion")
	return nil
}

// ApplyCommentDeleted removes every notification header referencing the
// comment, together with its delivery rows.
func (m *Maintainer) ApplyCommentDeleted(ctx context.Context, commentID string) error {
	if commentID == "" {
		return fmt.Errorf("comment deletion is missing the comment ID")
	}

	deleted, err := m.store.DeleteNotificationsByReference(ctx, db.DeleteNotificationsByReferenceParams{
		ReferenceType: db.ReferenceTypeComment,
		ReferenceID:   commentID,
	})
	if err != nil {
		return fmt.Errorf("failed to cascade comment deletion: %w", err)
	}

	log.Info().Str("comment_id", commentID).Int("notifications_deleted", len(deleted)).Msg("cascaded comment deletion")
	return nil
}
