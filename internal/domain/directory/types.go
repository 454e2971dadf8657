// Package directory models the paginated listing of users shown to
// administrators.
package directory

import "net/url"

const (
	// EmptyPlaceholder is the single row rendered for an empty page.
	EmptyPlaceholder = "No users found."
	// ErrorMessage is shown when a page could not be fetched.
	ErrorMessage = "Failed to fetch users."
)

// Entry is one user in a directory page.
type Entry struct {
	UserID    string `json:"_id"`
	FirstName string `json:"firstName"`
	EmailID   string `json:"emailId"`
	IsOnline  bool   `json:"isOnline"`
}

// Status is the presence label of the entry.
func (e Entry) Status() string {
	if e.IsOnline {
		return "Online"
	}
	return "Offline"
}

// TrackPath is the inspector view for the entry.
func (e Entry) TrackPath() string {
	return "/admin/view/" + url.PathEscape(e.UserID)
}

// Page is one fetched page. It is never cached across page changes.
type Page struct {
	// Number is the 1-indexed page that was requested.
	Number     int
	Entries    []Entry
	TotalPages int
}

// ClampPage keeps n inside [1, max(totalPages, 1)].
func ClampPage(n, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if n < 1 {
		return 1
	}
	if n > totalPages {
		return totalPages
	}
	return n
}

// Listing is a page prepared for display with its navigation controls.
type Listing struct {
	Page
}

// NewListing wraps p for display.
func NewListing(p Page) *Listing {
	return &Listing{Page: p}
}

// Empty reports whether the placeholder row replaces the table body.
func (l *Listing) Empty() bool {
	return len(l.Entries) == 0
}

// ShowControls reports whether pagination controls are rendered at all.
// A directory of zero or one page shows none.
func (l *Listing) ShowControls() bool {
	return l.TotalPages > 1
}

// PrevEnabled reports whether "Previous" is clickable.
func (l *Listing) PrevEnabled() bool {
	return l.Number > 1
}

// NextEnabled reports whether "Next" is clickable.
func (l *Listing) NextEnabled() bool {
	return l.Number < l.TotalPages
}

// PrevPage is the page "Previous" navigates to.
func (l *Listing) PrevPage() int {
	return ClampPage(l.Number-1, l.TotalPages)
}

// NextPage is the page "Next" navigates to.
func (l *Listing) NextPage() int {
	return ClampPage(l.Number+1, l.TotalPages)
}
