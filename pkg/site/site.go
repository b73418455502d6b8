// Package site contains the core domain types for the Digital Indian website backend.
package site

import (
	"fmt"
	"time"
)

// ContentKind identifies one of the notifiable content types.
type ContentKind string

const (
	KindPost   ContentKind = "post"
	KindUpdate ContentKind = "update"
	KindJob    ContentKind = "job"
)

// ParseKind converts a user-supplied string into a ContentKind.
func ParseKind(s string) (ContentKind, error) {
	switch ContentKind(s) {
	case KindPost, KindUpdate, KindJob:
		return ContentKind(s), nil
	case "posts", "blog":
		return KindPost, nil
	case "updates", "company_update":
		return KindUpdate, nil
	case "jobs", "job_opening", "career":
		return KindJob, nil
	default:
		return "", fmt.Errorf("unknown content kind %q", s)
	}
}

// Subscriber is an email address registered for content notifications.
type Subscriber struct {
	CreatedAt time.Time `json:"created_at"`
	Email     string    `json:"email"`
}

// Post is a blog article.
type Post struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`   // HTML or plain text body
	Author    string    `json:"author"`
	Category  string    `json:"category"`
	ImageURL  string    `json:"image_url"` // Public URL of the uploaded cover image
}

// CompanyUpdate is a short news item. Updates have no page of their own.
type CompanyUpdate struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
}

// JobOpening is a position listed on the career page.
type JobOpening struct {
	CreatedAt   time.Time `json:"created_at"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Type        string    `json:"type"` // Full-time, Internship, ...
	Department  string    `json:"department"`
}

// GalleryItem is an image shown on the "Life at Digital Indian" page.
type GalleryItem struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Hint      string    `json:"hint"`
	ImageURL  string    `json:"image_url"`
}

// ContentItem is the minimal view of a post, update or job that notifications need.
type ContentItem struct {
	Kind    ContentKind `json:"kind"`
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Summary string      `json:"summary,omitempty"` // Optional plain-text teaser for the email body
}

// Item returns the notifiable view of a post.
func (p *Post) Item() ContentItem {
	return ContentItem{Kind: KindPost, ID: p.ID, Title: p.Title}
}

// Item returns the notifiable view of a company update.
func (u *CompanyUpdate) Item() ContentItem {
	return ContentItem{Kind: KindUpdate, ID: u.ID, Title: u.Title}
}

// Item returns the notifiable view of a job opening.
func (j *JobOpening) Item() ContentItem {
	return ContentItem{Kind: KindJob, ID: j.ID, Title: j.Title}
}

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatMessage is a single request-scoped chat turn. It is never persisted.
type ChatMessage struct {
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}
