package model

import "time"

// DefaultCategories ships with the journal; decisions may also use free-form
// category names, and users can add their own via the category manager.
var DefaultCategories = []string{
	"work",
	"money",
	"health",
	"relationships",
	"fun",
	"personal",
	"other",
}

// CustomCategory is a user-defined category. Name is lowercase, trimmed, and
// unique among custom categories. A category name may also exist only because
// a decision uses it, with no CustomCategory row.
type CustomCategory struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
