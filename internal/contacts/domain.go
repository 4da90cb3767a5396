package contacts

import "time"

// Contact is one submission from the public intake form.
type Contact struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Message   string
	CreatedAt time.Time
}

// ListedContact is a contact decorated with the read marker for the
// principal browsing the console.
type ListedContact struct {
	Contact
	Viewed bool
}
