package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/unitecrm/unite/internal/crm"
	"github.com/unitecrm/unite/internal/knowledge"
	"github.com/unitecrm/unite/internal/messaging"
)

var ErrMappingNotFound = errors.New("identity mapping not found")

// Channels an identifier can be observed on. The set is open: unknown
// channel strings are stored as given (lower-cased).
const (
	ChannelEmail = "email"
	ChannelVoice = "voice"
	ChannelSMS   = "sms"
	ChannelChat  = "chat"
	ChannelAPI   = "api"
)

// Mapping records one known way to reach a contact: a (channel, identifier)
// pair plus the per-system IDs resolution has filled in so far. Empty string
// means the ID is still unresolved. Mappings are never deleted.
type Mapping struct {
	ID                 string    `json:"id"`
	Channel            string    `json:"channel"`
	Identifier         string    `json:"identifier"`
	DisplayName        string    `json:"display_name,omitempty"`
	PersonID           string    `json:"person_id,omitempty"`
	MessagingContactID string    `json:"messaging_contact_id,omitempty"`
	MemoryEntityID     string    `json:"memory_entity_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Resolved reports whether both the CRM and messaging IDs are filled, i.e.
// resolution has nothing left to do.
func (m Mapping) Resolved() bool {
	return m.PersonID != "" && m.MessagingContactID != ""
}

// Timeline aggregates everything known about an identifier across systems.
// All slices are non-nil; Person is nil when no mapping reaches a CRM record.
type Timeline struct {
	Identifier    string                   `json:"identifier"`
	Mappings      []Mapping                `json:"mappings"`
	Person        *crm.Person              `json:"person,omitempty"`
	Conversations []messaging.Conversation `json:"conversations"`
	Facts         []knowledge.Fact         `json:"facts"`
}

func emptyTimeline(identifier string) Timeline {
	return Timeline{
		Identifier:    identifier,
		Mappings:      []Mapping{},
		Conversations: []messaging.Conversation{},
		Facts:         []knowledge.Fact{},
	}
}

// NormalizeChannel lower-cases and trims a channel name.
func NormalizeChannel(channel string) string {
	return strings.ToLower(strings.TrimSpace(channel))
}

// phoneChannels carry the identifier as a phone number on record creation;
// email carries it as an email address; other channels carry neither.
var phoneChannels = map[string]struct{}{
	ChannelVoice: {},
	ChannelSMS:   {},
	"phone":      {},
	"call":       {},
	"whatsapp":   {},
}

// IsPhoneChannel reports whether identifiers on channel are phone numbers.
func IsPhoneChannel(channel string) bool {
	_, ok := phoneChannels[NormalizeChannel(channel)]
	return ok
}
