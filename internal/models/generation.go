package models

import "time"

// Generation is one persisted prompt to code result owned by a single user.
type Generation struct {
	ID        string
	Seq       int64
	UserID    string
	Prompt    string
	Language  string
	Code      string
	CreatedAt time.Time
}

type GenerationPage struct {
	Records    []Generation
	TotalCount int
	TotalPages int
	Page       int
	Limit      int
}
