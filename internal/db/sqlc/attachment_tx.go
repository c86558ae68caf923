package db

import (
	"context"
	"errors"
	"fmt"
)

type PropagatePostAttachmentTxParams struct {
	SubjectID string         `json:"subject_id"`
	Kind      AttachmentKind `json:"kind"`
	Image     string         `json:"image"`
}

// PropagatePostAttachmentTx applies a post's current kind (post vs video) and
// image to its attachment fragment. Both kinds can exist for one post when a
// notification event carrying the new kind was stored before this propagation
// ran; in that case the stale-kind row is folded into the current one so the
// unique (kind, subject_id) index never blocks the update.
func (store *SQLStore) PropagatePostAttachmentTx(ctx context.Context, arg PropagatePostAttachmentTxParams) (int64, error) {
	var affected int64

	err := store.ExecTx(ctx, func(qTx *Queries) error {
		var txErr error
		affected, txErr = propagatePostAttachment(ctx, qTx, arg)
		return txErr
	})

	return affected, err
}

func propagatePostAttachment(ctx context.Context, q Querier, arg PropagatePostAttachmentTxParams) (int64, error) {
	staleKind := AttachmentKindVideo
	if arg.Kind == AttachmentKindVideo {
		staleKind = AttachmentKindPost
	}

	target, targetErr := q.GetAttachmentBySubject(ctx, GetAttachmentBySubjectParams{Kind: arg.Kind, SubjectID: arg.SubjectID})
	if targetErr != nil && !errors.Is(targetErr, ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to get attachment fragment: %w", targetErr)
	}

	stale, staleErr := q.GetAttachmentBySubject(ctx, GetAttachmentBySubjectParams{Kind: staleKind, SubjectID: arg.SubjectID})
	if staleErr != nil && !errors.Is(staleErr, ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to get attachment fragment: %w", staleErr)
	}

	switch {
	case targetErr == nil && staleErr == nil:
		// Both kinds exist. Fold the stale row into the current one: links
		// move over, then the stale row goes, then the survivor's image is
		// refreshed.
		if err := q.RepointAttachmentLinks(ctx, RepointAttachmentLinksParams{FromID: stale.ID, ToID: target.ID}); err != nil {
			return 0, fmt.Errorf("failed to repoint attachment links: %w", err)
		}
		if err := q.DeleteAttachment(ctx, stale.ID); err != nil {
			return 0, fmt.Errorf("failed to delete stale attachment fragment: %w", err)
		}
		if _, err := q.UpdateAttachment(ctx, UpdateAttachmentParams{ID: target.ID, Kind: arg.Kind, Image: arg.Image}); err != nil {
			return 0, fmt.Errorf("failed to update attachment fragment: %w", err)
		}
		return 1, nil

	case staleErr == nil:
		// Only the stale kind exists; flipping it cannot collide.
		affected, err := q.UpdateAttachment(ctx, UpdateAttachmentParams{ID: stale.ID, Kind: arg.Kind, Image: arg.Image})
		if err != nil {
			return 0, fmt.Errorf("failed to update attachment fragment: %w", err)
		}
		return affected, nil

	case targetErr == nil:
		affected, err := q.UpdateAttachment(ctx, UpdateAttachmentParams{ID: target.ID, Kind: arg.Kind, Image: arg.Image})
		if err != nil {
			return 0, fmt.Errorf("failed to update attachment fragment: %w", err)
		}
		return affected, nil

	default:
		// The post never appeared in a notification.
		return 0, nil
	}
}
