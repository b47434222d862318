package model

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
}

type Submission struct {
	ID        string
	OwnerID   string
	Name      string
	Country   string
	Company   string
	Questions []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubmissionWithOwner carries the owner's display name resolved by join.
type SubmissionWithOwner struct {
	Submission
	OwnerName string
}
