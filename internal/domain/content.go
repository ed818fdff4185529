package domain

import (
	"fmt"
	"time"
)

// ContentStatus enumerates moderation states of an uploaded snippet.
type ContentStatus string

const (
	ContentPending  ContentStatus = "pending"
	ContentApproved ContentStatus = "approved"
	ContentRejected ContentStatus = "rejected"
)

// Content is the subset of a snippet record this service needs for
// validation and ownership checks.
type Content struct {
	ID          string        `json:"id" db:"id"`
	OwnerID     string        `json:"ownerId" db:"owner_id"`
	Title       string        `json:"title" db:"title"`
	Genre       string        `json:"genre" db:"genre"`
	Status      ContentStatus `json:"status" db:"status"`
	PublishedAt *time.Time    `json:"publishedAt" db:"published_at"`
	ViewCount   int64         `json:"viewCount" db:"view_count"`
}

// Rail enumerates the feed rails a client can request.
type Rail string

const (
	RailForYou      Rail = "for_you"
	RailNewThisWeek Rail = "new_this_week"
	RailFollowing   Rail = "following"
	RailUnderground Rail = "underground"
)

// ParseRail converts s to a Rail, rejecting unknown values.
func ParseRail(s string) (Rail, error) {
	switch r := Rail(s); r {
	case RailForYou, RailNewThisWeek, RailFollowing, RailUnderground:
		return r, nil
	}
	return "", fmt.Errorf("%w: unsupported rail %q", ErrValidation, s)
}

// Snippet is a ranked feed entry annotated with its creator's display name.
type Snippet struct {
	ID                 string     `json:"id" db:"id"`
	Title              string     `json:"title" db:"title"`
	Genre              string     `json:"genre" db:"genre"`
	CreatorID          string     `json:"creatorId" db:"creator_id"`
	CreatorDisplayName string     `json:"creatorDisplayName" db:"creator_display_name"`
	AudioURL           string     `json:"audioUrl" db:"audio_url"`
	CoverURL           string     `json:"coverUrl,omitempty" db:"cover_url"`
	PublishedAt        *time.Time `json:"publishedAt" db:"published_at"`
	ViewCount          int64      `json:"viewCount" db:"view_count"`
	Score              float64    `json:"score,omitempty" db:"score"`
}
