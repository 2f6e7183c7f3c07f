// Package domain holds the types that flow through the curation pipeline.
package domain

// ContentItem is a piece of content submitted for curation. It is never
// mutated once built.
type ContentItem struct {
	ID             string            `json:"id"`
	Text           string            `json:"text"`
	ContentType    string            `json:"content_type,omitempty"`
	SourceMetadata map[string]string `json:"source_metadata,omitempty"`
}

// Content types accepted by the API. Unknown values are passed through.
const (
	ContentTypeText    = "text"
	ContentTypeArticle = "article"
	ContentTypeSocial  = "social_post"
	ContentTypeComment = "comment"
	ContentTypeURL     = "url"
)
