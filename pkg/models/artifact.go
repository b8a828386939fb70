package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ArtifactStatus represents the processing state of a result artifact.
type ArtifactStatus string

const (
	ArtifactStatusPending    ArtifactStatus = "pending"
	ArtifactStatusProcessing ArtifactStatus = "processing"
	ArtifactStatusCompleted  ArtifactStatus = "completed"
	ArtifactStatusError      ArtifactStatus = "error"
)

// Artifact is the externally visible unit of work (e.g. an uploaded file)
// whose status and result are updated by a completed execution. Exactly one
// execution is the authoritative writer of ProcessingResult at any time; the
// store enforces this with a compare-and-set commit.
type Artifact struct {
	ID               string         `json:"id"`
	ActivationID     string         `json:"activation_id"`
	Status           ArtifactStatus `json:"status"`
	ProcessingResult map[string]any `json:"processing_result,omitempty"`
	FeedItemID       *string        `json:"feed_item_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// FeedItem is a derivative record produced as a byproduct of execution.
// Its natural identity is (activation id, normalized title); insertion is
// keyed by that identity so re-triggered executions over the same input
// never duplicate it.
type FeedItem struct {
	ID              string    `json:"id"`
	ActivationID    string    `json:"activation_id"`
	Title           string    `json:"title"`
	NormalizedTitle string    `json:"normalized_title"`
	URL             string    `json:"url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// NormalizeTitle reduces a title to its natural-identity form: lowercased
// with runs of whitespace collapsed to single spaces.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// NaturalKey returns the deduplication key for the item.
func (f *FeedItem) NaturalKey() string {
	return f.ActivationID + "\x00" + f.NormalizedTitle
}

// GenerateFeedItemID generates a unique feed item ID.
func GenerateFeedItemID() string {
	return "feed-" + uuid.New().String()[:8]
}
