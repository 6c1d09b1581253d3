// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// MaxFailedLogins is the number of consecutive failures that disables an account.
const MaxFailedLogins = 5

// User represents an admin account. The password is never stored in plaintext.
type User struct {
	ID                  uuid.UUID // PK
	Username            string    // unique, 2..30 chars
	Email               string    // unique
	PwdHash             []byte    // Argon2id(password, Salt)
	Salt                []byte    // per-user salt
	IsActive            bool
	IsLoggedIn          bool // informational only; sessions are token + idle time
	FailedLoginAttempts int
	LastLoginAttempt    *time.Time
	LastActiveAt        *time.Time
	IPAddress           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Session is the outcome of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// Claims is the decoded payload of a verified session token.
type Claims struct {
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ViewLog records one counted view of a post.
type ViewLog struct {
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	Timestamp time.Time `json:"timestamp"`
}

// Post is a board entry. Attachments are referenced by URL; the blobs
// themselves belong to the blob store.
type Post struct {
	ID        uuid.UUID
	Number    int64 // assigned by the store, never reused
	Title     string
	Content   string // markdown with embedded media URLs
	FileURLs  []string
	Views     int64
	ViewLogs  []ViewLog
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostInput carries the author-controlled fields of a post.
type PostInput struct {
	Title    string
	Content  string
	FileURLs []string
}

// Viewer identifies a reader for view deduplication.
type Viewer struct {
	IP        string
	UserAgent string
}

// ContactStatus is the processing state of a contact request.
type ContactStatus string

const (
	ContactInProgress ContactStatus = "in progress"
	ContactPending    ContactStatus = "pending"
	ContactCompleted  ContactStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s ContactStatus) Valid() bool {
	switch s {
	case ContactInProgress, ContactPending, ContactCompleted:
		return true
	}
	return false
}

// Contact is a message submitted through the public contact form.
type Contact struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Phone     string
	Message   string
	Status    ContactStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
