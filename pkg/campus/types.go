package campus

// Subject is one curriculum entry for a program and study level.
type Subject struct {
	Code        string `json:"code" yaml:"code"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

// NewsItem is one campus news entry for an institution.
type NewsItem struct {
	Headline string `json:"headline" yaml:"headline"`
	Date     string `json:"date" yaml:"date"`
	Snippet  string `json:"snippet" yaml:"snippet"`
	Link     string `json:"link" yaml:"link"`
}

// Book is one reading recommendation or search result.
type Book struct {
	Title       string `json:"title" yaml:"title"`
	Author      string `json:"author" yaml:"author"`
	Description string `json:"description" yaml:"description"`
	Link        string `json:"link,omitempty" yaml:"link"`
}

// Source tags where an accessor's records came from. Accessors never fail;
// they degrade, and the tag is the only way callers can tell.
type Source string

const (
	// SourceLive marks records parsed from a live model response.
	SourceLive Source = "live"
	// SourceFallback marks the hand-authored substitute dataset, returned
	// wholesale after an error or a below-threshold parse.
	SourceFallback Source = "fallback"
	// SourceDemo marks fallback data served because no usable credential was
	// configured. No network call was attempted.
	SourceDemo Source = "demo"
)
