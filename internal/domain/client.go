package domain

import "time"

// Sex is the constrained value set accepted for a client record.
type Sex string

const (
	SexMale          Sex = "Male"
	SexFemale        Sex = "Female"
	SexNotApplicable Sex = "N/A"
)

// ValidSex reports whether the given value is one of the accepted ones.
func ValidSex(s Sex) bool {
	return s == SexMale || s == SexFemale || s == SexNotApplicable
}

// Client is a managed client record. CreatedByUserID drives the access
// policy: non-admin users only see records they created.
type Client struct {
	ID              int64
	FirstName       string
	LastName        string
	DOB             string // normalized YYYY-MM-DD
	Sex             Sex
	CreatedByUserID int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
