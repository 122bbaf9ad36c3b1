package domain

import "time"

// User identifies a reader whose behavioural signals drive personalised
// recommendation. Account management is out of scope; the engine only
// reads bounded, recency-ordered signal slices.
type User struct {
	ID    string
	Email string
	Name  string
}

// Favorite marks a book a user has favourited.
type Favorite struct {
	UserID    string
	Book      Book
	CreatedAt time.Time
}

// LastSeen records a book a user recently viewed.
type LastSeen struct {
	UserID    string
	Book      Book
	CreatedAt time.Time
}

// SearchLog records one executed search for a user. At most the last
// SearchLogKeep entries are retained per user.
type SearchLog struct {
	UserID       string
	Type         SearchType
	QueryText    string
	ResultsCount int
	ElapsedMS    int64
	CreatedAt    time.Time
}

// SearchLogKeep is the number of search-log entries retained per user.
const SearchLogKeep = 10

// LastSeenKeep is the number of last-seen entries retained per user.
const LastSeenKeep = 10
