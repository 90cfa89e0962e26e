package models

import "time"

// PostSummary is everything a listing needs about a post, without its body.
type PostSummary struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Author      string    `json:"author"`
	ReadTime    string    `json:"readTime"`
	Category    string    `json:"category"`
	Excerpt     string    `json:"excerpt"`
	PublishedAt time.Time `json:"publishedAt"` // parsed Date, UTC
}

type Post struct {
	PostSummary
	Content string `json:"content"` // trimmed markdown body, one trailing newline
}

func (p Post) Summary() PostSummary {
	return p.PostSummary
}

// Section is one titled fragment of a post body, addressable by ID.
type Section struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type PostView struct {
	ID        uint      `gorm:"primary_key;autoIncrement" json:"id"`
	Slug      string    `gorm:"not null;index" json:"slug"`
	CookieID  string    `gorm:"not null;index" json:"-"`
	IP        string    `gorm:"not null" json:"-"`
	Browser   *string   `json:"browser,omitempty"`
	Language  *string   `json:"language,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
