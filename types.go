package inkwell

// Post is the core content type: an article authored in the admin console
// and served through the read-only API. Content is the HTML produced by
// the editor. Date is RFC3339 and drives the descending sort order.
type Post struct {
	Slug         string   `json:"slug" validate:"required"`
	Title        string   `json:"title" validate:"required"`
	Content      string   `json:"content"`
	Tags         []string `json:"tags"`
	Date         string   `json:"date"`
	FeatureImage string   `json:"feature_image,omitempty"`
	Excerpt      string   `json:"excerpt,omitempty"`
}

// Page is static, non-chronological content (About, Privacy). Same shape
// as Post minus tags and excerpt.
type Page struct {
	Slug         string `json:"slug" validate:"required"`
	Title        string `json:"title" validate:"required"`
	Content      string `json:"content"`
	Date         string `json:"date"`
	FeatureImage string `json:"feature_image,omitempty"`
}

// Tag is a catalog row. The catalog is a suggestion index for the admin
// UI's autocomplete; posts may carry tag names that have no catalog row.
type Tag struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// APIKey is one entry in the api_keys setting. Key is an opaque bearer
// secret compared by exact match.
type APIKey struct {
	Name      string `json:"name"`
	Key       string `json:"key"`
	CreatedAt string `json:"createdAt"`
}

// NavLink is one entry in the primary_navigation / secondary_navigation
// settings.
type NavLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// SiteInfo is the site_info setting.
type SiteInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SiteDesign is the site_design setting (branding).
type SiteDesign struct {
	LogoURL     string `json:"logo_url"`
	AccentColor string `json:"accent_color"`
}

// Image is the metadata row for an uploaded feature image.
type Image struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Size         int    `json:"size"`
	UploadedAt   string `json:"uploaded_at"`
}
