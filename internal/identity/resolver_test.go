package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/unitecrm/unite/internal/crm"
	"github.com/unitecrm/unite/internal/knowledge"
	"github.com/unitecrm/unite/internal/messaging"
	"github.com/unitecrm/unite/internal/validate"
)

type fakeStore struct {
	mappings map[string]Mapping
	nextID   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{mappings: map[string]Mapping{}}
}

func key(channel, identifier string) string {
	return channel + "|" + identifier
}

func (s *fakeStore) Get(_ context.Context, channel, identifier string) (Mapping, error) {
	m, ok := s.mappings[key(NormalizeChannel(channel), strings.TrimSpace(identifier))]
	if !ok {
		return Mapping{}, ErrMappingNotFound
	}
	return m, nil
}

func (s *fakeStore) Upsert(_ context.Context, m Mapping) (Mapping, error) {
	k := key(NormalizeChannel(m.Channel), strings.TrimSpace(m.Identifier))
	existing, ok := s.mappings[k]
	if !ok {
		s.nextID++
		m.ID = fmt.Sprintf("map-%d", s.nextID)
		s.mappings[k] = m
		return m, nil
	}
	existing.DisplayName = Fill(existing.DisplayName, m.DisplayName)
	existing.PersonID = Fill(existing.PersonID, m.PersonID)
	existing.MessagingContactID = Fill(existing.MessagingContactID, m.MessagingContactID)
	existing.MemoryEntityID = Fill(existing.MemoryEntityID, m.MemoryEntityID)
	s.mappings[k] = existing
	return existing, nil
}

func (s *fakeStore) FindByIdentifierOrName(_ context.Context, identifier string) ([]Mapping, error) {
	out := []Mapping{}
	q := strings.ToLower(strings.TrimSpace(identifier))
	for _, m := range s.mappings {
		if m.Identifier == identifier || (m.DisplayName != "" && strings.Contains(strings.ToLower(m.DisplayName), q)) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) ListRecent(_ context.Context, _ int) ([]Mapping, error) {
	out := []Mapping{}
	for _, m := range s.mappings {
		out = append(out, m)
	}
	return out, nil
}

type fakeCRM struct {
	people      []crm.Person
	searchCalls int
	createCalls int
	getCalls    int
	mentions    []string
	failSearch  bool
	failCreate  bool
}

func (c *fakeCRM) SearchPeople(_ context.Context, term string) ([]crm.Person, error) {
	c.searchCalls++
	if c.failSearch {
		return nil, errors.New("crm unavailable")
	}
	out := []crm.Person{}
	q := strings.ToLower(term)
	for _, p := range c.people {
		if strings.Contains(strings.ToLower(p.FullName()), q) ||
			strings.Contains(strings.ToLower(p.Email), q) ||
			(p.Phone != "" && strings.Contains(p.Phone, term)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *fakeCRM) CreatePerson(_ context.Context, req crm.CreatePersonRequest) (crm.Person, error) {
	c.createCalls++
	if c.failCreate {
		return crm.Person{}, errors.New("crm unavailable")
	}
	if ok, reason := validate.PersonInput(req.FirstName, req.LastName, req.Email); !ok {
		return crm.Person{}, fmt.Errorf("%w: %s", crm.ErrRejected, reason)
	}
	p := crm.Person{
		ID:        fmt.Sprintf("person-%d", c.createCalls),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	c.people = append(c.people, p)
	return p, nil
}

func (c *fakeCRM) GetPerson(_ context.Context, personID string) (crm.Person, error) {
	c.getCalls++
	for _, p := range c.people {
		if p.ID == personID {
			return p, nil
		}
	}
	return crm.Person{}, crm.ErrPersonNotFound
}

func (c *fakeCRM) RecordMention(_ context.Context, personID string) error {
	c.mentions = append(c.mentions, personID)
	return nil
}

type fakeMessaging struct {
	contacts      []messaging.Contact
	conversations map[string][]messaging.Conversation
	searchCalls   int
	createCalls   int
	failSearch    bool
	failCreate    bool
}

func (m *fakeMessaging) SearchContacts(_ context.Context, term string) ([]messaging.Contact, error) {
	m.searchCalls++
	if m.failSearch {
		return nil, errors.New("messaging unavailable")
	}
	out := []messaging.Contact{}
	q := strings.ToLower(term)
	for _, c := range m.contacts {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Email), q) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *fakeMessaging) CreateContact(_ context.Context, req messaging.CreateContactRequest) (messaging.Contact, error) {
	m.createCalls++
	if m.failCreate {
		return messaging.Contact{}, errors.New("messaging unavailable")
	}
	c := messaging.Contact{
		ID:          fmt.Sprintf("contact-%d", m.createCalls),
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		ExternalRef: req.ExternalRef,
	}
	m.contacts = append(m.contacts, c)
	return c, nil
}

func (m *fakeMessaging) GetConversations(_ context.Context, contactID string) ([]messaging.Conversation, error) {
	if m.conversations == nil {
		return []messaging.Conversation{}, nil
	}
	return m.conversations[contactID], nil
}

type fakeFacts struct {
	facts []knowledge.Fact
	fail  bool
}

func (f *fakeFacts) Search(_ context.Context, _ string, _ int) ([]knowledge.Fact, error) {
	if f.fail {
		return nil, errors.New("knowledge store down")
	}
	return f.facts, nil
}

func newTestResolver(store MappingStore, c *fakeCRM, m *fakeMessaging, f *fakeFacts) *Resolver {
	var facts FactSearcher
	if f != nil {
		facts = f
	}
	return NewResolver(nil, store, c, m, facts, 0)
}

func TestResolveCreatesMissingRecords(t *testing.T) {
	store := newFakeStore()
	crmSvc := &fakeCRM{}
	msgSvc := &fakeMessaging{}
	r := newTestResolver(store, crmSvc, msgSvc, nil)

	got, err := r.Resolve(t.Context(), "Email", " jane@acme.test ", "Jane Porter")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Channel != "email" || got.Identifier != "jane@acme.test" {
		t.Errorf("normalized pair = (%q, %q)", got.Channel, got.Identifier)
	}
	if got.PersonID == "" || got.MessagingContactID == "" {
		t.Fatalf("expected both IDs filled, got %+v", got)
	}
	if crmSvc.createCalls != 1 || msgSvc.createCalls != 1 {
		t.Errorf("create calls = crm %d, messaging %d; want 1 each", crmSvc.createCalls, msgSvc.createCalls)
	}
	created := crmSvc.people[0]
	if created.FirstName != "Jane" || created.LastName != "Porter" || created.Email != "jane@acme.test" {
		t.Errorf("created person = %+v", created)
	}
	contact := msgSvc.contacts[0]
	if contact.ExternalRef != "email:jane@acme.test" {
		t.Errorf("external ref = %q, want email:jane@acme.test", contact.ExternalRef)
	}
	if contact.Email != "jane@acme.test" {
		t.Errorf("contact email = %q", contact.Email)
	}
}

func TestResolvePhoneChannelAssignsPhone(t *testing.T) {
	store := newFakeStore()
	crmSvc := &fakeCRM{}
	msgSvc := &fakeMessaging{}
	r := newTestResolver(store, crmSvc, msgSvc, nil)

	if _, err := r.Resolve(t.Context(), "sms", "+15551234567", "Sam Hill"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p := crmSvc.people[0]; p.Phone != "+15551234567" || p.Email != "" {
		t.Errorf("created person = %+v, want phone assignment", p)
	}
	if c := msgSvc.contacts[0]; c.Phone != "+15551234567" || c.ExternalRef != "sms:+15551234567" {
		t.Errorf("created contact = %+v", c)
	}
}

func TestResolveFastPathNoExternalCalls(t *testing.T) {
	store := newFakeStore()
	store.mappings[key("email", "jane@acme.test")] = Mapping{
		ID: "map-1", Channel: "email", Identifier: "jane@acme.test",
		PersonID: "person-1", MessagingContactID: "contact-1",
	}
	crmSvc := &fakeCRM{}
	msgSvc := &fakeMessaging{}
	r := newTestResolver(store, crmSvc, msgSvc, nil)

	got, err := r.Resolve(t.Context(), "email", "jane@acme.test", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !got.Resolved() {
		t.Fatalf("expected resolved mapping, got %+v", got)
	}
	if crmSvc.searchCalls+crmSvc.createCalls+msgSvc.searchCalls+msgSvc.createCalls != 0 {
		t.Error("fast path issued external calls")
	}
	if len(crmSvc.mentions) != 0 {
		t.Error("fast path recorded a mention")
	}
}

func TestResolveIdempotent(t *testing.T) {
	store := newFakeStore()
	crmSvc := &fakeCRM{}
	msgSvc := &fakeMessaging{}
	r := newTestResolver(store, crmSvc, msgSvc, nil)

	first, err := r.Resolve(t.Context(), "email", "jane@acme.test", "Jane Porter")
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	second, err := r.Resolve(t.Context(), "email", "jane@acme.test", "")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if second.PersonID != first.PersonID || second.MessagingContactID != first.MessagingContactID {
		t.Errorf("second resolve changed IDs: %+v vs %+v", second, first)
	}
	if second.DisplayName != first.DisplayName {
		t.Errorf("second resolve changed display name: %q vs %q", second.DisplayName, first.DisplayName)
	}
	if crmSvc.createCalls != 1 || msgSvc.createCalls != 1 {
		t.Errorf("records created more than once: crm %d, messaging %d", crmSvc.createCalls, msgSvc.createCalls)
	}
}

func TestResolvePrefersBestNameMatch(t *testing.T) {
	store := newFakeStore()
	crmSvc := &fakeCRM{people: []crm.Person{
		{ID: "p-weak", FirstName: "Jane", LastName: "Porterhouse", MentionCount: 50},
		{ID: "p-exact", FirstName: "Jane", LastName: "Porter", MentionCount: 2},
	}}
	msgSvc := &fakeMessaging{}
	r := newTestResolver(store, crmSvc, msgSvc, nil)

	got, err := r.Resolve(t.Context(), "email", "jane@acme.test", "Jane Porter")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.PersonID != "p-exact" {
		t.Errorf("PersonID = %q, want the exact name match", got.PersonID)
	}
	if crmSvc.createCalls != 0 {
		t.Error("created a person despite search hits")
	}
	if len(crmSvc.mentions) != 1 || crmSvc.mentions[0] != "p-exact" {
		t.Errorf("mentions = %v, want [p-exact]", crmSvc.mentions)
	}
}

func TestResolveSurvivesExternalFailures(t *testing.T) {
	store := newFakeStore()
	crmSvc := &fakeCRM{failSearch: true, failCreate: true}
	msgSvc := &fakeMessaging{}
	r := newTestResolver(store, crmSvc, msgSvc, nil)

	got, err := r.Resolve(t.Context(), "email", "jane@acme.test", "Jane Porter")
	if err != nil {
		t.Fatalf("Resolve should not fail on external errors: %v", err)
	}
	if got.PersonID != "" {
		t.Errorf("PersonID = %q, want unresolved", got.PersonID)
	}
	if got.MessagingContactID == "" {
		t.Error("messaging side should still resolve")
	}

	// Once the CRM recovers, the next resolve fills the gap without
	// disturbing the already-filled contact ID.
	crmSvc.failSearch = false
	crmSvc.failCreate = false
	refilled, err := r.Resolve(t.Context(), "email", "jane@acme.test", "Jane Porter")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if refilled.PersonID == "" {
		t.Error("expected person gap to fill after recovery")
	}
	if refilled.MessagingContactID != got.MessagingContactID {
		t.Error("contact ID changed while filling the person gap")
	}
}

func TestResolveRejectsBlocklistedName(t *testing.T) {
	store := newFakeStore()
	crmSvc := &fakeCRM{}
	msgSvc := &fakeMessaging{}
	r := newTestResolver(store, crmSvc, msgSvc, nil)

	got, err := r.Resolve(t.Context(), "chat", "user-42", "couch")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.PersonID != "" {
		t.Errorf("blocklisted name produced a person: %q", got.PersonID)
	}
	if crmSvc.createCalls != 1 {
		t.Errorf("expected the rejected create attempt to be counted, got %d", crmSvc.createCalls)
	}
}

func TestTimelineUnknownIdentifier(t *testing.T) {
	r := newTestResolver(newFakeStore(), &fakeCRM{}, &fakeMessaging{}, nil)

	tl, err := r.Timeline(t.Context(), "nobody@nowhere.test")
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if tl.Mappings == nil || tl.Conversations == nil || tl.Facts == nil {
		t.Fatal("timeline slices must be non-nil")
	}
	if len(tl.Mappings) != 0 || tl.Person != nil || len(tl.Conversations) != 0 || len(tl.Facts) != 0 {
		t.Errorf("expected empty aggregate, got %+v", tl)
	}
}

func TestTimelineAssembles(t *testing.T) {
	store := newFakeStore()
	store.mappings[key("email", "jane@acme.test")] = Mapping{
		ID: "map-1", Channel: "email", Identifier: "jane@acme.test",
		DisplayName: "Jane Porter", PersonID: "p-1", MessagingContactID: "c-1",
	}
	crmSvc := &fakeCRM{people: []crm.Person{{ID: "p-1", FirstName: "Jane", LastName: "Porter"}}}
	msgSvc := &fakeMessaging{conversations: map[string][]messaging.Conversation{
		"c-1": {{ID: "conv-1", ContactID: "c-1", Channel: "email"}},
	}}
	facts := &fakeFacts{facts: []knowledge.Fact{{ID: "f-1", Text: "met at conference"}}}
	r := newTestResolver(store, crmSvc, msgSvc, facts)

	tl, err := r.Timeline(t.Context(), "jane@acme.test")
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(tl.Mappings) != 1 {
		t.Fatalf("mappings = %d, want 1", len(tl.Mappings))
	}
	if tl.Person == nil || tl.Person.ID != "p-1" {
		t.Errorf("person = %+v, want p-1", tl.Person)
	}
	if len(tl.Conversations) != 1 || tl.Conversations[0].ID != "conv-1" {
		t.Errorf("conversations = %+v", tl.Conversations)
	}
	if len(tl.Facts) != 1 {
		t.Errorf("facts = %+v", tl.Facts)
	}
}

func TestTimelineSwallowsFactErrors(t *testing.T) {
	store := newFakeStore()
	store.mappings[key("email", "jane@acme.test")] = Mapping{
		ID: "map-1", Channel: "email", Identifier: "jane@acme.test", PersonID: "p-1",
	}
	crmSvc := &fakeCRM{people: []crm.Person{{ID: "p-1", FirstName: "Jane"}}}
	r := newTestResolver(store, crmSvc, &fakeMessaging{}, &fakeFacts{fail: true})

	tl, err := r.Timeline(t.Context(), "jane@acme.test")
	if err != nil {
		t.Fatalf("fact store failure must not fail the timeline: %v", err)
	}
	if len(tl.Facts) != 0 {
		t.Errorf("facts = %+v, want empty", tl.Facts)
	}
}

func TestTimelineFuzzyNameMatch(t *testing.T) {
	store := newFakeStore()
	store.mappings[key("voice", "+15550001111")] = Mapping{
		ID: "map-1", Channel: "voice", Identifier: "+15550001111",
		DisplayName: "Gregory Smith", PersonID: "p-1",
	}
	crmSvc := &fakeCRM{people: []crm.Person{{ID: "p-1", FirstName: "Gregory", LastName: "Smith"}}}
	r := newTestResolver(store, crmSvc, &fakeMessaging{}, nil)

	tl, err := r.Timeline(t.Context(), "Greg Smith")
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(tl.Mappings) != 1 {
		t.Fatalf("expected fuzzy match to find the mapping, got %d", len(tl.Mappings))
	}
	if tl.Person == nil || tl.Person.ID != "p-1" {
		t.Errorf("person = %+v", tl.Person)
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in        string
		wantFirst string
		wantLast  string
	}{
		{"Jane Porter", "Jane", "Porter"},
		{"Jane", "Jane", ""},
		{"Jane van der Berg", "Jane", "van der Berg"},
		{"", "", ""},
		{"  Jane   Porter  ", "Jane", "Porter"},
	}
	for _, tt := range tests {
		first, last := splitName(tt.in)
		if first != tt.wantFirst || last != tt.wantLast {
			t.Errorf("splitName(%q) = (%q, %q), want (%q, %q)", tt.in, first, last, tt.wantFirst, tt.wantLast)
		}
	}
}

func TestFill(t *testing.T) {
	tests := []struct {
		existing string
		incoming string
		want     string
	}{
		{"", "new", "new"},
		{"old", "", "old"},
		{"old", "new", "new"},
		{"", "", ""},
		{"old", "   ", "old"},
	}
	for _, tt := range tests {
		if got := Fill(tt.existing, tt.incoming); got != tt.want {
			t.Errorf("Fill(%q, %q) = %q, want %q", tt.existing, tt.incoming, got, tt.want)
		}
	}
}
