package messaging

import (
	"errors"
	"time"
)

var ErrContactNotFound = errors.New("messaging contact not found")

// Contact is a messaging-side contact record.
type Contact struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	ExternalRef string    `json:"external_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Conversation is a message thread attached to a contact and, once resolved,
// to a canonical person.
type Conversation struct {
	ID            string    `json:"id"`
	ContactID     string    `json:"contact_id,omitempty"`
	PersonID      string    `json:"person_id,omitempty"`
	Channel       string    `json:"channel"`
	Subject       string    `json:"subject,omitempty"`
	LastMessageAt time.Time `json:"last_message_at,omitzero"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateContactRequest is contact-creation input. ExternalRef records where
// the contact was first observed, as "{channel}:{identifier}".
type CreateContactRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	ExternalRef string `json:"external_ref,omitempty"`
}
