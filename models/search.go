package models

// SearchHit is one matching comment as returned by the legacy comment search.
type SearchHit struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	AuthorID string `json:"author_id"`
	FileID   string `json:"file_id"`
}

// ResultEntry is a display-ready unified search result.
type ResultEntry struct {
	AvatarURL  string            `json:"thumbnailUrl"`
	Title      string            `json:"title"`
	Subline    string            `json:"subline"`
	TargetURL  string            `json:"resourceUrl"`
	Icon       string            `json:"icon"`
	IsRounded  bool              `json:"rounded"`
	Attributes map[string]string `json:"attributes"`
}

// ResultList is the response of a single search provider.
type ResultList struct {
	ProviderID  string        `json:"id"`
	Name        string        `json:"name"`
	Order       int           `json:"order"`
	IsPaginated bool          `json:"isPaginated"`
	Entries     []ResultEntry `json:"entries"`
	Cursor      *string       `json:"cursor"`
}

// SearchQuery carries the unified search request parameters.
type SearchQuery struct {
	Term  string
	Limit int
	Route string // route the search was started from
}

// UserIdentity is the user performing the search.
type UserIdentity struct {
	ID          string
	DisplayName string
}
