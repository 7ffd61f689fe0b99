package domain

import (
	"time"

	"github.com/google/uuid"
)

// PostStatus is the lifecycle state of a post.
type PostStatus string

const (
	PostStatusDraft      PostStatus = "draft"
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
)

// Post is a piece of content a user intends to publish to LinkedIn.
// A post moves to scheduled when a ScheduledPost is attached to it, and
// only the publish pipeline moves it to published or failed.
type Post struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"userId"`
	Content         string     `json:"content"`
	Status          PostStatus `json:"status"`
	LinkedInPostID  string     `json:"linkedinPostId,omitempty"`
	LinkedInPostURL string     `json:"linkedinPostUrl,omitempty"`
	FailureReason   string     `json:"failureReason,omitempty"`
	MediaKeys       []string   `json:"mediaKeys,omitempty"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// CloneDraft copies the post's content into a fresh draft owned by the
// same user. Used by recurrence expansion so each occurrence publishes
// (and retries, and cancels) independently of its siblings.
func (p Post) CloneDraft(now time.Time) Post {
	return Post{
		ID:        uuid.New(),
		UserID:    p.UserID,
		Content:   p.Content,
		Status:    PostStatusDraft,
		MediaKeys: append([]string(nil), p.MediaKeys...),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
