package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/unitecrm/unite/internal/crm"
	"github.com/unitecrm/unite/internal/knowledge"
	"github.com/unitecrm/unite/internal/messaging"
	"github.com/unitecrm/unite/internal/namematch"
	"github.com/unitecrm/unite/internal/validate"
)

// CRM is the person-store capability the resolver consumes.
type CRM interface {
	SearchPeople(ctx context.Context, term string) ([]crm.Person, error)
	CreatePerson(ctx context.Context, req crm.CreatePersonRequest) (crm.Person, error)
	GetPerson(ctx context.Context, personID string) (crm.Person, error)
	RecordMention(ctx context.Context, personID string) error
}

// Messaging is the messaging-store capability the resolver consumes.
type Messaging interface {
	SearchContacts(ctx context.Context, term string) ([]messaging.Contact, error)
	CreateContact(ctx context.Context, req messaging.CreateContactRequest) (messaging.Contact, error)
	GetConversations(ctx context.Context, contactID string) ([]messaging.Conversation, error)
}

// FactSearcher is the knowledge-store capability the resolver consumes.
// Failures are tolerated by the timeline assembly only.
type FactSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]knowledge.Fact, error)
}

// MappingStore is the persistence contract the resolver requires; *Store is
// the production implementation.
type MappingStore interface {
	Get(ctx context.Context, channel, identifier string) (Mapping, error)
	Upsert(ctx context.Context, m Mapping) (Mapping, error)
	FindByIdentifierOrName(ctx context.Context, identifier string) ([]Mapping, error)
	ListRecent(ctx context.Context, limit int) ([]Mapping, error)
}

const timelineFactLimit = 10

// Resolver maps observed identifiers to per-system records, creating the
// records that are missing and persisting the mapping.
type Resolver struct {
	store     MappingStore
	crm       CRM
	messaging Messaging
	facts     FactSearcher
	threshold float64
	logger    *slog.Logger
}

// NewResolver creates a resolver. facts may be nil when no knowledge store
// is configured; threshold <= 0 selects the default match threshold.
func NewResolver(log *slog.Logger, store MappingStore, crmSvc CRM, messagingSvc Messaging, facts FactSearcher, threshold float64) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	if threshold <= 0 {
		threshold = namematch.DefaultThreshold
	}
	return &Resolver{
		store:     store,
		crm:       crmSvc,
		messaging: messagingSvc,
		facts:     facts,
		threshold: threshold,
		logger:    log.With(slog.String("service", "identity/resolver")),
	}
}

// Resolve maps (channel, identifier) to a stored Mapping, filling missing
// per-system IDs by searching and, when a display name is available,
// creating the missing records. External failures degrade the affected ID
// to unresolved; only storage errors propagate. The returned mapping is
// always usable, possibly with some IDs still empty.
func (r *Resolver) Resolve(ctx context.Context, channel, identifier, displayName string) (Mapping, error) {
	channel = NormalizeChannel(channel)
	identifier = strings.TrimSpace(identifier)
	if channel == "" || identifier == "" {
		return Mapping{}, fmt.Errorf("channel and identifier are required")
	}

	existing, err := r.store.Get(ctx, channel, identifier)
	switch {
	case err == nil:
		if existing.Resolved() {
			// Fast path: nothing to fill, no external calls.
			return existing, nil
		}
	case err == ErrMappingNotFound:
		existing = Mapping{Channel: channel, Identifier: identifier}
	default:
		return Mapping{}, err
	}

	name := strings.TrimSpace(validate.ScrubNullString(displayName))
	name = Fill(existing.DisplayName, name)

	personID := existing.PersonID
	if personID == "" {
		personID = r.resolvePerson(ctx, channel, identifier, name)
	}
	contactID := existing.MessagingContactID
	if contactID == "" {
		contactID = r.resolveContact(ctx, channel, identifier, name)
	}

	return r.store.Upsert(ctx, Mapping{
		Channel:            channel,
		Identifier:         identifier,
		DisplayName:        name,
		PersonID:           personID,
		MessagingContactID: contactID,
		MemoryEntityID:     existing.MemoryEntityID,
	})
}

// resolvePerson searches the CRM by name or identifier and falls back to a
// validated create when a display name is known. Returns "" when the ID
// stays unresolved.
func (r *Resolver) resolvePerson(ctx context.Context, channel, identifier, name string) string {
	term := name
	if term == "" {
		term = identifier
	}
	people, err := r.crm.SearchPeople(ctx, term)
	if err != nil {
		r.logger.Warn("crm search failed",
			slog.String("identifier", identifier), slog.Any("error", err))
		people = nil
	}
	if len(people) > 0 {
		chosen := people[0]
		if name != "" {
			candidates := make([]namematch.Candidate, 0, len(people))
			for i, p := range people {
				candidates = append(candidates, namematch.Candidate{
					Name:         p.FullName(),
					MentionCount: p.MentionCount,
					Ref:          i,
				})
			}
			if best, ok := namematch.FindBestMatch(name, candidates, r.threshold); ok {
				chosen = people[best.Ref.(int)]
			}
		}
		if err := r.crm.RecordMention(ctx, chosen.ID); err != nil {
			r.logger.Warn("record mention failed",
				slog.String("person", chosen.ID), slog.Any("error", err))
		}
		return chosen.ID
	}
	if name == "" {
		return ""
	}

	first, last := splitName(name)
	req := crm.CreatePersonRequest{FirstName: first, LastName: last}
	switch {
	case channel == ChannelEmail:
		req.Email = identifier
	case IsPhoneChannel(channel):
		req.Phone = identifier
	}
	person, err := r.crm.CreatePerson(ctx, req)
	if err != nil {
		r.logger.Warn("crm create failed",
			slog.String("identifier", identifier), slog.String("name", name), slog.Any("error", err))
		return ""
	}
	return person.ID
}

// resolveContact searches the messaging store and falls back to creating a
// contact tagged with the "{channel}:{identifier}" external reference.
func (r *Resolver) resolveContact(ctx context.Context, channel, identifier, name string) string {
	term := name
	if term == "" {
		term = identifier
	}
	contacts, err := r.messaging.SearchContacts(ctx, term)
	if err != nil {
		r.logger.Warn("messaging search failed",
			slog.String("identifier", identifier), slog.Any("error", err))
		contacts = nil
	}
	if len(contacts) > 0 {
		return contacts[0].ID
	}

	contactName := name
	if contactName == "" {
		contactName = identifier
	}
	req := messaging.CreateContactRequest{
		Name:        contactName,
		ExternalRef: fmt.Sprintf("%s:%s", channel, identifier),
	}
	switch {
	case channel == ChannelEmail:
		req.Email = identifier
	case IsPhoneChannel(channel):
		req.Phone = identifier
	}
	contact, err := r.messaging.CreateContact(ctx, req)
	if err != nil {
		r.logger.Warn("messaging create failed",
			slog.String("identifier", identifier), slog.Any("error", err))
		return ""
	}
	return contact.ID
}

// Timeline assembles the cross-system activity view for an identifier. An
// unknown identifier yields an empty but well-formed aggregate. Knowledge
// store failures are swallowed here; CRM and messaging lookups degrade to
// the next mapping.
func (r *Resolver) Timeline(ctx context.Context, identifier string) (Timeline, error) {
	identifier = strings.TrimSpace(identifier)
	tl := emptyTimeline(identifier)
	if identifier == "" {
		return tl, nil
	}

	mappings, err := r.store.FindByIdentifierOrName(ctx, identifier)
	if err != nil {
		return tl, err
	}
	if len(mappings) == 0 {
		mappings, err = r.fuzzyMappings(ctx, identifier)
		if err != nil {
			return tl, err
		}
	}
	if len(mappings) == 0 {
		return tl, nil
	}
	tl.Mappings = mappings

	for _, m := range mappings {
		if m.PersonID == "" {
			continue
		}
		person, err := r.crm.GetPerson(ctx, m.PersonID)
		if err != nil {
			continue
		}
		tl.Person = &person
		break
	}

	for _, m := range mappings {
		if m.MessagingContactID == "" {
			continue
		}
		conversations, err := r.messaging.GetConversations(ctx, m.MessagingContactID)
		if err != nil {
			continue
		}
		tl.Conversations = conversations
		break
	}

	if r.facts != nil {
		facts, err := r.facts.Search(ctx, identifier, timelineFactLimit)
		if err != nil {
			r.logger.Warn("fact search failed",
				slog.String("identifier", identifier), slog.Any("error", err))
		} else if facts != nil {
			tl.Facts = facts
		}
	}
	return tl, nil
}

// fuzzyMappings scans recent mappings for display names similar to the
// query. Only consulted when the exact and substring lookups find nothing.
func (r *Resolver) fuzzyMappings(ctx context.Context, identifier string) ([]Mapping, error) {
	recent, err := r.store.ListRecent(ctx, 0)
	if err != nil {
		return nil, err
	}
	matched := make([]Mapping, 0)
	for _, m := range recent {
		if m.DisplayName == "" {
			continue
		}
		if namematch.Similarity(identifier, m.DisplayName) >= r.threshold {
			matched = append(matched, m)
		}
	}
	return matched, nil
}

// splitName divides a display name into first and last: the first
// whitespace-delimited token is the first name, the remainder the last.
func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
