package domain

import "time"

// PublishedPost is the deduplication view of a post already in the corpus.
type PublishedPost struct {
	Title      string
	Date       time.Time
	Categories []string
	Tags       []string
	FileName   string
}

// Draft is a fully rendered post (front matter and body) ready to publish.
type Draft struct {
	Title    string
	Category string
	PostType PostType
	Tags     []string
	Date     time.Time
	Slug     string
	Body     string
}

// PublishReceipt describes where a draft ended up.
type PublishReceipt struct {
	FilePath   string
	CommitHash string
	Pushed     bool
	PushError  string
}

// PostPublishedEvent is emitted once per successfully published post.
type PostPublishedEvent struct {
	RunID      string    `json:"run_id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Tags       []string  `json:"tags"`
	FilePath   string    `json:"file_path"`
	CommitHash string    `json:"commit_hash"`
	Pushed     bool      `json:"pushed"`
	At         time.Time `json:"at"`
}

// ValidationResult is the outcome of the advisory content checks.
type ValidationResult struct {
	IsValid  bool
	Warnings []string
}
