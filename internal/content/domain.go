package content

import (
	"time"

	"github.com/himalclinic/himalclinic/internal/i18n"
)

// BlogPost is a bilingual article.
type BlogPost struct {
	ID          int64
	Slug        string
	Title       i18n.Text
	Excerpt     i18n.Text
	Body        i18n.Text
	Published   bool
	PublishedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Video is an embedded lecture or talk recording.
type Video struct {
	ID        int64
	Title     i18n.Text
	YouTubeID string
	Published bool
	CreatedAt time.Time
}

// Lecture records a talk given abroad.
type Lecture struct {
	ID        int64
	Title     i18n.Text
	Venue     string
	Country   string
	Year      int
	CreatedAt time.Time
}
