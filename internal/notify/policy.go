package notify

import (
	db "github.com/tranvand/feedhub-BE/internal/db/sqlc"
)

// AvatarDisplayCap limits how many contributor avatars a rendered
// notification shows. num_total_avatars keeps reporting the true count.
const AvatarDisplayCap = 5

// Policy is the per-type bundling policy. Merge-capable types accumulate
// contributors on one header per uniqueness tuple; the rest treat a
// redelivered tuple as a no-op.
type Policy struct {
	MergeCapable     bool
	AvatarDisplayCap int32
	Public           bool
	Icon             string
}

var policies = map[db.NotificationType]Policy{
	db.NotificationTypeCommentMention:      {Icon: "comment"},
	db.NotificationTypeCommentReply:        {MergeCapable: true, AvatarDisplayCap: AvatarDisplayCap, Icon: "comment"},
	db.NotificationTypePostNewComment:      {MergeCapable: true, AvatarDisplayCap: AvatarDisplayCap, Icon: "comment"},
	db.NotificationTypePostUpvoteMilestone: {MergeCapable: true, AvatarDisplayCap: AvatarDisplayCap, Icon: "upvote"},
	db.NotificationTypePostReaction:        {Icon: "heart"},
	db.NotificationTypePostBanned:          {Icon: "block"},
	db.NotificationTypeSourceApproved:      {Public: true, Icon: "check"},
	db.NotificationTypeSourceRejected:      {Icon: "block"},
	db.NotificationTypeSquadMemberJoined:   {MergeCapable: true, AvatarDisplayCap: AvatarDisplayCap, Public: true, Icon: "users"},
	db.NotificationTypeFeedbackResolved:    {Icon: "check"},
}

// PolicyFor returns the bundling policy of a notification type.
func PolicyFor(notificationType db.NotificationType) (Policy, bool) {
	policy, ok := policies[notificationType]
	return policy, ok
}

// DisplayCapFor returns the avatar display cap for a type; non-merge types
// show every avatar the builder produced.
func DisplayCapFor(notificationType db.NotificationType) int32 {
	if policy, ok := policies[notificationType]; ok && policy.AvatarDisplayCap > 0 {
		return policy.AvatarDisplayCap
	}
	return AvatarDisplayCap
}

func UserProfileURL(handle string) string {
	return "/users/" + handle
}

// SourceURL deep-links a source avatar: squads live under /squads/, machine
// sources under /sources/.
func SourceURL(handle string, isSquad bool) string {
	if isSquad {
		return "/squads/" + handle
	}
	return "/sources/" + handle
}

func PostURL(postID string) string {
	return "/posts/" + postID
}

func CommentURL(postID, commentID string) string {
	return "/posts/" + postID + "#c-" + commentID
}
