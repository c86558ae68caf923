package notify

// The builder receives pre-fetched display fields from the caller; it never
// looks entities up itself. These reference types are the fixed-shape
// boundary with the worker layer.

type UserRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Handle string `json:"handle"`
	Image  string `json:"image"`
}

type SourceRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Handle  string `json:"handle"`
	Image   string `json:"image"`
	IsSquad bool   `json:"is_squad"`
}

type PostRef struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Image   string `json:"image"`
	IsVideo bool   `json:"is_video"`
}

type CommentRef struct {
	ID      string `json:"id"`
	PostID  string `json:"post_id"`
	Excerpt string `json:"excerpt"`
}

type CommentMentionContext struct {
	Comment          CommentRef `json:"comment"`
	Commenter        UserRef    `json:"commenter"`
	MentionedUserIDs []string   `json:"mentioned_user_ids"`
	Post             PostRef    `json:"post"`
	Source           SourceRef  `json:"source"`
}

type CommentReplyContext struct {
	Parent        CommentRef `json:"parent"`
	Reply         CommentRef `json:"reply"`
	Replier       UserRef    `json:"replier"`
	ThreadUserIDs []string   `json:"thread_user_ids"`
	Post          PostRef    `json:"post"`
}

type PostNewCommentContext struct {
	Post         PostRef    `json:"post"`
	Comment      CommentRef `json:"comment"`
	Commenter    UserRef    `json:"commenter"`
	RecipientIDs []string   `json:"recipient_ids"`
}

type PostUpvoteMilestoneContext struct {
	Post      PostRef   `json:"post"`
	AuthorID  string    `json:"author_id"`
	Milestone int64     `json:"milestone"`
	Upvoters  []UserRef `json:"upvoters"`
}

type PostReactionContext struct {
	Post     PostRef `json:"post"`
	Reactor  UserRef `json:"reactor"`
	AuthorID string  `json:"author_id"`
}

type PostBannedContext struct {
	Post     PostRef `json:"post"`
	AuthorID string  `json:"author_id"`
}

type SourceApprovedContext struct {
	Source       SourceRef `json:"source"`
	SubmissionID string    `json:"submission_id"`
	RequesterID  string    `json:"requester_id"`
}

type SourceRejectedContext struct {
	SourceName   string `json:"source_name"`
	SubmissionID string `json:"submission_id"`
	RequesterID  string `json:"requester_id"`
}

type SquadMemberJoinedContext struct {
	Squad    SourceRef `json:"squad"`
	Member   UserRef   `json:"member"`
	AdminIDs []string  `json:"admin_ids"`
}

type FeedbackResolvedContext struct {
	FeedbackID  string `json:"feedback_id"`
	SubmitterID string `json:"submitter_id"`
	Subject     string `json:"subject"`
}
