package notify

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	db "github.com/tranvand/feedhub-BE/internal/db/sqlc"
)

// ErrInvalidContext marks a malformed builder context. The worker drops the
// event without retrying: no partial bundle is ever produced.
var ErrInvalidContext = errors.New("invalid notification context")

// Build maps a typed domain context to a notification bundle. It is pure:
// no I/O, no entity lookups. A nil bundle with a nil error means the event
// legitimately produces no notification (e.g. the actor would be the sole
// recipient).
func Build(notificationType db.NotificationType, context any) (*db.NotificationBundle, error) {
	switch notificationType {
	case db.NotificationTypeCommentMention:
		return buildFrom(notificationType, context, buildCommentMention)
	case db.NotificationTypeCommentReply:
		return buildFrom(notificationType, context, buildCommentReply)
	case db.NotificationTypePostNewComment:
		return buildFrom(notificationType, context, buildPostNewComment)
	case db.NotificationTypePostUpvoteMilestone:
		return buildFrom(notificationType, context, buildPostUpvoteMilestone)
	case db.NotificationTypePostReaction:
		return buildFrom(notificationType, context, buildPostReaction)
	case db.NotificationTypePostBanned:
		return buildFrom(notificationType, context, buildPostBanned)
	case db.NotificationTypeSourceApproved:
		return buildFrom(notificationType, context, buildSourceApproved)
	case db.NotificationTypeSourceRejected:
		return buildFrom(notificationType, context, buildSourceRejected)
	case db.NotificationTypeSquadMemberJoined:
		return buildFrom(notificationType, context, buildSquadMemberJoined)
	case db.NotificationTypeFeedbackResolved:
		return buildFrom(notificationType, context, buildFeedbackResolved)
	default:
		return nil, fmt.Errorf("%w: unknown notification type %q", ErrInvalidContext, notificationType)
	}
}

func buildFrom[T any](notificationType db.NotificationType, context any, build func(T) (*db.NotificationBundle, error)) (*db.NotificationBundle, error) {
	typed, ok := context.(T)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects %T, got %T", ErrInvalidContext, notificationType, typed, context)
	}
	return build(typed)
}

func buildCommentMention(c CommentMentionContext) (*db.NotificationBundle, error) {
	if c.Comment.ID == "" || c.Comment.PostID == "" || c.Commenter.ID == "" {
		return nil, fmt.Errorf("%w: comment mention requires comment, post and commenter", ErrInvalidContext)
	}

	recipients := excludeUser(c.MentionedUserIDs, c.Commenter.ID)
	if len(recipients) == 0 {
		return nil, nil
	}

	policy := policies[db.NotificationTypeCommentMention]
	return &db.NotificationBundle{
		Header: db.NotificationHeaderDraft{
			Type:          db.NotificationTypeCommentMention,
			Title:         fmt.Sprintf("%s mentioned you in a comment on %s", c.Commenter.Name, c.Post.Title),
			Description:   textPtr(c.Comment.Excerpt),
			Icon:          policy.Icon,
			TargetUrl:     CommentURL(c.Comment.PostID, c.Comment.ID),
			IsPublic:      policy.Public,
			ReferenceID:   c.Comment.ID,
			ReferenceType: db.ReferenceTypeComment,
			UniqueKey:     db.DefaultUniqueKey,
		},
		Avatars:    []db.AvatarDraft{userAvatar(c.Commenter)},
		Recipients: recipients,
	}, nil
}

func buildCommentReply(c CommentReplyContext) (*db.NotificationBundle, error) {
	if c.Parent.ID == "" || c.Reply.ID == "" || c.Replier.ID == "" {
		return nil, fmt.Errorf("%w: comment reply requires parent, reply and replier", ErrInvalidContext)
	}

	recipients := excludeUser(c.ThreadUserIDs, c.Replier.ID)
	if len(recipients) == 0 {
		return nil, nil
	}

	policy := policies[db.NotificationTypeCommentReply]
	return &db.NotificationBundle{
		Header: db.NotificationHeaderDraft{
			Type:          db.NotificationTypeCommentReply,
			Title:         fmt.Sprintf("New replies in the thread on %s", c.Post.Title),
			Description:   textPtr(c.Reply.Excerpt),
			Icon:          policy.Icon,
			TargetUrl:     CommentURL(c.Parent.PostID, c.Parent.ID),
			IsPublic:      policy.Public,
			ReferenceID:   c.Parent.ID,
			ReferenceType: db.ReferenceTypeComment,
			UniqueKey:     db.DefaultUniqueKey,
		},
		Avatars:    []db.AvatarDraft{userAvatar(c.Replier)},
		Recipients: recipients,
	}, nil
}

func buildPostNewComment(c PostNewCommentContext) (*db.NotificationBundle, error) {
	if c.Post.ID == "" || c.Comment.ID == "" || c.Commenter.ID == "" {
		return nil, fmt.Errorf("%w: new comment requires post, comment and commenter", ErrInvalidContext)
	}

	recipients := excludeUser(c.RecipientIDs, c.Commenter.ID)
	if len(recipients) == 0 {
		return nil, nil
	}

	policy := policies[db.NotificationTypePostNewComment]
	return &db.NotificationBundle{
		Header: db.NotificationHeaderDraft{
			Type:          db.NotificationTypePostNewComment,
			Title:         fmt.Sprintf("New comments on %s", c.Post.Title),
			Description:   textPtr(c.Comment.Excerpt),
			Icon:          policy.Icon,
			TargetUrl:     CommentURL(c.Post.ID, c.Comment.ID),
			IsPublic:      policy.Public,
			ReferenceID:   c.Post.ID,
			ReferenceType: db.ReferenceTypePost,
			UniqueKey:     db.DefaultUniqueKey,
		},
		Avatars:     []db.AvatarDraft{userAvatar(c.Commenter)},
		Attachments: []db.AttachmentDraft{postAttachment(c.Post)},
		Recipients:  recipients,
	}, nil
}

func buildPostUpvoteMilestone(c PostUpvoteMilestoneContext) (*db.NotificationBundle, error) {
	if c.Post.ID == "" || c.AuthorID == "" || c.Milestone <= 0 {
		return nil, fmt.Errorf("%w: upvote milestone requires post, author and a positive milestone", ErrInvalidContext)
	}

	avatars := make([]db.AvatarDraft, 0, len(c.Upvoters))
	for _, upvoter := range c.Upvoters {
		if upvoter.ID == "" || upvoter.ID == c.AuthorID {
			continue
		}
		avatars = append(avatars, userAvatar(upvoter))
	}

	policy := policies[db.NotificationTypePostUpvoteMilestone]
	return &db.NotificationBundle{
		Header: db.NotificationHeaderDraft{
			Type:          db.NotificationTypePostUpvoteMilestone,
			Title:         fmt.Sprintf("%s reached %s upvotes", c.Post.Title, humanize.Comma(c.Milestone)),
			Icon:          policy.Icon,
			TargetUrl:     PostURL(c.Post.ID),
			IsPublic:      policy.Public,
			ReferenceID:   c.Post.ID,
			ReferenceType: db.ReferenceTypePost,
			// One milestone, one header: the threshold disambiguates so the
			// 100-upvote and 1000-upvote notifications coexist.
			UniqueKey: strconv.FormatInt(c.Milestone, 10),
		},
		Avatars:     avatars,
		Attachments: []db.AttachmentDraft{postAttachment(c.Post)},
		Recipients:  []string{c.AuthorID},
	}, nil
}

func buildPostReaction(c PostReactionContext) (*db.NotificationBundle, error) {
	if c.Post.ID == "" || c.Reactor.ID == "" || c.AuthorID == "" {
		return nil, fmt.Errorf("%w: post reaction requires post, reactor and author", ErrInvalidContext)
	}
	if c.Reactor.ID == c.AuthorID {
		// Never notify a user about their own reaction.
		return nil, nil
	}

	policy := policies[db.NotificationTypePostReaction]
	return &db.NotificationBundle{
		Header: db.NotificationHeaderDraft{
			Type:          db.NotificationTypePostReaction,
			Title:         fmt.Sprintf("%s loved your post %s", c.Reactor.Name, c.Post.Title),
			Icon:          policy.Icon,
			TargetUrl:     PostURL(c.Post.ID),
			IsPublic:      policy.Public,
			ReferenceID:   c.Post.ID,
			ReferenceType: db.ReferenceTypePost,
			// Per-actor discriminator: reactions from different users must
			// not collapse into one header.
			UniqueKey: c.Reactor.ID,
		},
		Avatars:     []db.AvatarDraft{userAvatar(c.Reactor)},
		Attachments: []db.AttachmentDraft{postAttachment(c.Post)},
		Recipients:  []string{c.AuthorID},
	}, nil
}

func buildPostBanned(c PostBannedContext) (*db.NotificationBundle, error) {
	if c.Post.ID == "" || c.AuthorID == "" {
		return nil, fmt.Errorf("%w: post banned requires post and author", ErrInvalidContext)
	}

	policy := policies[db.NotificationTypePostBanned]
	return &db.NotificationBundle{
		Header: db.NotificationHeaderDraft{
			Type:          db.NotificationTypePostBanned,
			Title:         fmt.Sprintf("Your post %s was removed for violating the community guidelines", c.Post.Title),
			Icon:          policy.Icon,
			TargetUrl:     PostURL(c.Post.ID),
			IsPublic:      policy.Public,
			ReferenceID:   c.Post.ID,
			ReferenceType: db.ReferenceTypePost,
			UniqueKey:     db.DefaultUniqueKey,
		},
		Attachments: []db.AttachmentDraft{postAttachment(c.Post)},
		Recipients:  []string{c.AuthorID},
	}, nil
}

func buildSourceApproved(c SourceApprovedContext) (*db.NotificationBundle, error) {
	if c.Source.ID == "" || c.SubmissionID == "" || c.RequesterID == "" {
		return nil, fmt.Errorf("%w: source approved requires source, submission and requester", ErrInvalidContext)
	}

	policy := policies[db.NotificationTypeSourceApproved]
	return &db.NotificationBundle{
		Header: db.NotificationHeaderDraft{
			Type:          db.NotificationTypeSourceApproved,
			Title:         fmt.Sprintf("The source %s you suggested was approved", c.Source.Name),
			Icon:          policy.Icon,
			TargetUrl:     SourceURL(c.Source.Handle, c.Source.IsSquad),
			IsPublic:      policy.Public,
			ReferenceID:   c.SubmissionID,
			ReferenceType: db.ReferenceTypeSource,
			UniqueKey:     db.DefaultUniqueKey,
		},
		Avatars:    []db.AvatarDraft{sourceAvatar(c.Source)},
		Recipients: []string{c.RequesterID},
	}, nil
}

func buildSourceRejected(c SourceRejectedContext) (*db.NotificationBundle, error) {
	if c.SubmissionID == "" || c.RequesterID == "" {
		return nil, fmt.Errorf("%w: source rejected requires submission and requester", ErrInvalidContext)
	}

	policy := policies[db.NotificationTypeSourceRejected]
	return &db.NotificationBundle{
		Header: db.NotificationHeaderDraft{
			Type:          db.NotificationTypeSourceRejected,
			Title:         fmt.Sprintf("The source %s you suggested was not approved", c.SourceName),
			Icon:          policy.Icon,
			TargetUrl:     "/sources/suggestions",
			IsPublic:      policy.Public,
			ReferenceID:   c.SubmissionID,
			ReferenceType: db.ReferenceTypeSource,
			UniqueKey:     db.DefaultUniqueKey,
		},
		Recipients: []string{c.RequesterID},
	}, nil
}

func buildSquadMemberJoined(c SquadMemberJoinedContext) (*db.NotificationBundle, error) {
	if c.Squad.ID == "" || c.Member.ID == "" {
		return nil, fmt.Errorf("%w: squad member joined requires squad and member", ErrInvalidContext)
	}

	recipients := excludeUser(c.AdminIDs, c.Member.ID)
	if len(recipients) == 0 {
		return nil, nil
	}

	policy := policies[db.NotificationTypeSquadMemberJoined]
	return &db.NotificationBundle{
		Header: db.NotificationHeaderDraft{
			Type:          db.NotificationTypeSquadMemberJoined,
			Title:         fmt.Sprintf("New members joined %s", c.Squad.Name),
			Icon:          policy.Icon,
			TargetUrl:     SourceURL(c.Squad.Handle, true),
			IsPublic:      policy.Public,
			ReferenceID:   c.Squad.ID,
			ReferenceType: db.ReferenceTypeSource,
			UniqueKey:     db.DefaultUniqueKey,
		},
		Avatars:    []db.AvatarDraft{userAvatar(c.Member)},
		Recipients: recipients,
	}, nil
}

func buildFeedbackResolved(c FeedbackResolvedContext) (*db.NotificationBundle, error) {
	if c.FeedbackID == "" || c.SubmitterID == "" {
		return nil, fmt.Errorf("%w: feedback resolved requires feedback and submitter", ErrInvalidContext)
	}

	policy := policies[db.NotificationTypeFeedbackResolved]
	return &db.NotificationBundle{
		Header: db.NotificationHeaderDraft{
			Type:          db.NotificationTypeFeedbackResolved,
			Title:         fmt.Sprintf("Your feedback %q was resolved", c.Subject),
			Icon:          policy.Icon,
			TargetUrl:     "/feedback/" + c.FeedbackID,
			IsPublic:      policy.Public,
			ReferenceID:   c.FeedbackID,
			ReferenceType: db.ReferenceTypeFeedback,
			UniqueKey:     db.DefaultUniqueKey,
		},
		Recipients: []string{c.SubmitterID},
	}, nil
}

func userAvatar(user UserRef) db.AvatarDraft {
	return db.AvatarDraft{
		Kind:      db.AvatarKindUser,
		SubjectID: user.ID,
		Name:      user.Name,
		Image:     user.Image,
		TargetUrl: UserProfileURL(user.Handle),
	}
}

func sourceAvatar(source SourceRef) db.AvatarDraft {
	return db.AvatarDraft{
		Kind:      db.AvatarKindSource,
		SubjectID: source.ID,
		Name:      source.Name,
		Image:     source.Image,
		TargetUrl: SourceURL(source.Handle, source.IsSquad),
	}
}

func postAttachment(post PostRef) db.AttachmentDraft {
	kind := db.AttachmentKindPost
	if post.IsVideo {
		kind = db.AttachmentKindVideo
	}
	return db.AttachmentDraft{
		Kind:      kind,
		SubjectID: post.ID,
		Image:     post.Image,
		Title:     post.Title,
	}
}

// excludeUser filters the actor out of the recipient list and drops
// duplicates and empty IDs.
func excludeUser(userIDs []string, excluded string) []string {
	seen := make(map[string]bool, len(userIDs))
	result := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		if userID == "" || userID == excluded || seen[userID] {
			continue
		}
		seen[userID] = true
		result = append(result, userID)
	}
	return result
}

func textPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
