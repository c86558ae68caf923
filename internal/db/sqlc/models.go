package db

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeCommentMention      NotificationType = "comment_mention"
	NotificationTypeCommentReply        NotificationType = "comment_reply"
	NotificationTypePostNewComment      NotificationType = "post_new_comment"
	NotificationTypePostUpvoteMilestone NotificationType = "post_upvote_milestone"
	NotificationTypePostReaction        NotificationType = "post_reaction"
	NotificationTypePostBanned          NotificationType = "post_banned"
	NotificationTypeSourceApproved      NotificationType = "source_approved"
	NotificationTypeSourceRejected      NotificationType = "source_rejected"
	NotificationTypeSquadMemberJoined   NotificationType = "squad_member_joined"
	NotificationTypeFeedbackResolved    NotificationType = "feedback_resolved"
)

// ReferenceType identifies the domain entity a notification header points at.
// It decides which cascade-delete rule removes the header when the entity
// disappears.
type ReferenceType string

const (
	ReferenceTypePost     ReferenceType = "post"
	ReferenceTypeComment  ReferenceType = "comment"
	ReferenceTypeSource   ReferenceType = "source"
	ReferenceTypeUser     ReferenceType = "user"
	ReferenceTypeFeedback ReferenceType = "feedback"
)

type AvatarKind string

const (
	AvatarKindUser   AvatarKind = "user"
	AvatarKindSource AvatarKind = "source"
)

type AttachmentKind string

const (
	AttachmentKindPost    AttachmentKind = "post"
	AttachmentKindVideo   AttachmentKind = "video"
	AttachmentKindComment AttachmentKind = "comment"
)

// DefaultUniqueKey is the discriminator for notification types that allow
// only one header per (type, reference). Types that need per-actor or
// per-threshold disambiguation put the actor ID or threshold here instead.
const DefaultUniqueKey = "default"

type NotificationHeader struct {
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
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type NotificationAvatar struct {
	ID        uuid.UUID  `json:"id"`
	Kind      AvatarKind `json:"kind"`
	SubjectID string     `json:"subject_id"`
	Name      string     `json:"name"`
	Image     string     `json:"image"`
	TargetUrl string     `json:"target_url"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type NotificationAttachment struct {
	ID        uuid.UUID      `json:"id"`
	Kind      AttachmentKind `json:"kind"`
	SubjectID string         `json:"subject_id"`
	Image     string         `json:"image"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type NotificationDelivery struct {
	NotificationID uuid.UUID  `json:"notification_id"`
	UserID         string     `json:"user_id"`
	IsPublic       bool       `json:"is_public"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at"`
}

// NotificationHeaderDraft is the builder's output for the header row, before
// the store assigns an ID and resolves the uniqueness tuple.
type NotificationHeaderDraft struct {
	Type          NotificationType `json:"type"`
	Title         string           `json:"title"`
	Description   *string          `json:"description"`
	Icon          string           `json:"icon"`
	TargetUrl     string           `json:"target_url"`
	IsPublic      bool             `json:"is_public"`
	ReferenceID   string           `json:"reference_id"`
	ReferenceType ReferenceType    `json:"reference_type"`
	UniqueKey     string           `json:"unique_key"`
}

type AvatarDraft struct {
	Kind      AvatarKind `json:"kind"`
	SubjectID string     `json:"subject_id"`
	Name      string     `json:"name"`
	Image     string     `json:"image"`
	TargetUrl string     `json:"target_url"`
}

type AttachmentDraft struct {
	Kind      AttachmentKind `json:"kind"`
	SubjectID string         `json:"subject_id"`
	Image     string         `json:"image"`
	Title     string         `json:"title"`
}

// NotificationBundle is the in-memory result of building one notification
// occurrence: header draft, fragment drafts and the recipient fan-out list.
type NotificationBundle struct {
	Header      NotificationHeaderDraft `json:"header"`
	Avatars     []AvatarDraft           `json:"avatars"`
	Attachments []AttachmentDraft       `json:"attachments"`
	Recipients  []string                `json:"recipients"`
}
