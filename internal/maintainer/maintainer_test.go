package maintainer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	db "github.com/tranvand/feedhub-BE/internal/db/sqlc"
)

// stubStore records the calls the maintainer issues. Unimplemented Store
// methods panic via the embedded nil interface, which is fine: the maintainer
// must only touch fragment updates and reference deletes.
type stubStore struct {
	db.Store

	avatarUpdates          []db.UpdateAvatarsBySubjectParams
	attachmentPropagations []db.PropagatePostAttachmentTxParams
	referenceDeletes       []db.DeleteNotificationsByReferenceParams
}

func (s *stubStore) UpdateAvatarsBySubject(_ context.Context, arg db.UpdateAvatarsBySubjectParams) (int64, error) {
	s.avatarUpdates = append(s.avatarUpdates, arg)
	return 1, nil
}

func (s *stubStore) PropagatePostAttachmentTx(_ context.Context, arg db.PropagatePostAttachmentTxParams) (int64, error) {
	s.attachmentPropagations = append(s.attachmentPropagations, arg)
	return 1, nil
}

func (s *stubStore) DeleteNotificationsByReference(_ context.Context, arg db.DeleteNotificationsByReferenceParams) ([]uuid.UUID, error) {
	s.referenceDeletes = append(s.referenceDeletes, arg)
	id, _ := uuid.NewV7()
	return []uuid.UUID{id}, nil
}

func TestApplyUserProfileChange(t *testing.T) {
	store := &stubStore{}
	m := New(store)

	err := m.ApplyUserProfileChange(context.Background(), UserProfileChange{
		UserID: "u_alice",
		Name:   "Alice",
		Handle: "alice",
		Image:  "https://cdn.example.com/alice.png",
	})
	if err != nil {
		t.Fatalf("ApplyUserProfileChange() error = %v", err)
	}

	if len(store.avatarUpdates) != 1 {
		t.Fatalf("avatar updates = %d, want 1", len(store.avatarUpdates))
	}
	update := store.avatarUpdates[0]
	if update.Kind != db.AvatarKindUser || update.SubjectID != "u_alice" {
		t.Errorf("update target = (%s, %s), want (user, u_alice)", update.Kind, update.SubjectID)
	}
	if update.TargetUrl != "/users/alice" {
		t.Errorf("TargetUrl = %s, want /users/alice", update.TargetUrl)
	}
}

func TestApplyUserProfileChangeRequiresUserID(t *testing.T) {
	m := New(&stubStore{})

	if err := m.ApplyUserProfileChange(context.Background(), UserProfileChange{Name: "Alice"}); err == nil {
		t.Error("expected an error for a change without a user ID")
	}
}

func TestApplySourceChangeSquadURL(t *testing.T) {
	store := &stubStore{}
	m := New(store)

	err := m.ApplySourceChange(context.Background(), SourceChange{
		SourceID: "s1",
		Name:     "Gophers",
		Handle:   "gophers",
		IsSquad:  true,
	})
	if err != nil {
		t.Fatalf("ApplySourceChange() error = %v", err)
	}

	update := store.avatarUpdates[0]
	if update.Kind != db.AvatarKindSource {
		t.Errorf("Kind = %s, want source", update.Kind)
	}
	if update.TargetUrl != "/squads/gophers" {
		t.Errorf("TargetUrl = %s, want /squads/gophers", update.TargetUrl)
	}
}

func TestApplySourceChangeMachineSourceURL(t *testing.T) {
	store := &stubStore{}
	m := New(store)

	err := m.ApplySourceChange(context.Background(), SourceChange{
		SourceID: "s2",
		Name:     "Go Blog",
		Handle:   "goblog",
	})
	if err != nil {
		t.Fatalf("ApplySourceChange() error = %v", err)
	}

	if url := store.avatarUpdates[0].TargetUrl; url != "/sources/goblog" {
		t.Errorf("TargetUrl = %s, want /sources/goblog", url)
	}
}

func TestApplyPostChangeRecomputesKind(t *testing.T) {
	store := &stubStore{}
	m := New(store)

	err := m.ApplyPostChange(context.Background(), PostChange{
		PostID:  "p1",
		Image:   "https://cdn.example.com/p1.mp4.png",
		IsVideo: true,
	})
	if err != nil {
		t.Fatalf("ApplyPostChange() error = %v", err)
	}

	if len(store.attachmentPropagations) != 1 {
		t.Fatalf("attachment propagations = %d, want 1", len(store.attachmentPropagations))
	}
	propagation := store.attachmentPropagations[0]
	if propagation.Kind != db.AttachmentKindVideo {
		t.Errorf("Kind = %s, want video", propagation.Kind)
	}
	if propagation.SubjectID != "p1" {
		t.Errorf("SubjectID = %s, want p1", propagation.SubjectID)
	}
}

func TestApplyDeletionsCascadeByReference(t *testing.T) {
	store := &stubStore{}
	m := New(store)
	ctx := context.Background()

	if err := m.ApplyPostDeleted(ctx, "p1"); err != nil {
		t.Fatalf("ApplyPostDeleted() error = %v", err)
	}
	if err := m.ApplyCommentDeleted(ctx, "c1"); err != nil {
		t.Fatalf("ApplyCommentDeleted() error = %v", err)
	}

	if len(store.referenceDeletes) != 2 {
		t.Fatalf("reference deletes = %d, want 2", len(store.referenceDeletes))
	}
	if store.referenceDeletes[0].ReferenceType != db.ReferenceTypePost || store.referenceDeletes[0].ReferenceID != "p1" {
		t.Errorf("first delete = %+v, want (post, p1)", store.referenceDeletes[0])
	}
	if store.referenceDeletes[1].ReferenceType != db.ReferenceTypeComment || store.referenceDeletes[1].ReferenceID != "c1" {
		t.Errorf("second delete = %+v, want (comment, c1)", store.referenceDeletes[1])
	}

	if err := m.ApplyPostDeleted(ctx, ""); err == nil {
		t.Error("expected an error for a deletion without an ID")
	}
}
