package model

import "time"

// Submission is one stored contact-form message.
type Submission struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Mobile    *string   `json:"mobile"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSubmission holds the fields a visitor provides. ID and Timestamp are
// assigned by the store.
type NewSubmission struct {
	Name    string
	Email   string
	Mobile  *string
	Message string
}
