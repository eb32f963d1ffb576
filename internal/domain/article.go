package domain

import "time"

// ArticleStatus enumerates the publishing lifecycle of an article.
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "draft"
	StatusPublished ArticleStatus = "published"
	StatusArchived  ArticleStatus = "archived"
)

// Valid reports whether s is one of the known lifecycle states.
func (s ArticleStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Article sources.
const (
	SourceIngested = "ingested"
	SourceManual   = "manual"
)

// Article is a news item stored in the content store.
type Article struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Slug             string        `json:"slug"`
	Content          string        `json:"content"`
	Summary          string        `json:"summary"`
	CoverURL         string        `json:"cover_url,omitempty"`
	ArticleURL       string        `json:"article_url,omitempty"`
	Status           ArticleStatus `json:"status"`
	Source           string        `json:"source"`
	ExtractionPrompt string        `json:"extraction_prompt,omitempty"`
	MetaDescription  string        `json:"meta_description,omitempty"`
	MetaKeywords     []string      `json:"meta_keywords,omitempty"`
	PublishedAt      *time.Time    `json:"published_at"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// LifecycleAction names a transition requested through the lifecycle worker.
type LifecycleAction string

const (
	ActionPublish LifecycleAction = "publish"
	ActionArchive LifecycleAction = "archive"
	ActionDraft   LifecycleAction = "draft"
	ActionEnhance LifecycleAction = "enhance"
)

// ParseLifecycleAction validates a raw action name.
func ParseLifecycleAction(raw string) (LifecycleAction, error) {
	action := LifecycleAction(raw)
	switch action {
	case ActionPublish, ActionArchive, ActionDraft, ActionEnhance:
		return action, nil
	}
	return "", Wrap(ErrUnknownAction, "lifecycle", "parse action", raw, nil)
}
