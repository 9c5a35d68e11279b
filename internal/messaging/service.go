// Package messaging owns messaging-side contacts and conversations.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unitecrm/unite/internal/db"
	"github.com/unitecrm/unite/internal/validate"
)

const searchLimit = 20

// Service provides messaging contact and conversation operations.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a messaging service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "messaging")),
	}
}

const contactColumns = `id, name, email, phone, external_ref, created_at, updated_at`

// SearchContacts finds contacts whose name, email, phone, or external ref
// matches term. Empty results are not an error.
func (s *Service) SearchContacts(ctx context.Context, term string) ([]Contact, error) {
	if s.pool == nil {
		return nil, errors.New("messaging pool not configured")
	}
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return []Contact{}, nil
	}
	pattern := "%" + trimmed + "%"
	rows, err := s.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM msg_contacts
		WHERE name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1 OR external_ref = $2
		ORDER BY created_at ASC
		LIMIT `+fmt.Sprint(searchLimit), pattern, trimmed)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	defer rows.Close()

	items := make([]Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, contact)
	}
	return items, rows.Err()
}

// GetContact returns a contact by ID.
func (s *Service) GetContact(ctx context.Context, contactID string) (Contact, error) {
	if s.pool == nil {
		return Contact{}, errors.New("messaging pool not configured")
	}
	pgID, err := db.ParseUUID(contactID)
	if err != nil {
		return Contact{}, err
	}
	row := s.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM msg_contacts WHERE id = $1`, pgID)
	contact, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, ErrContactNotFound
		}
		return Contact{}, err
	}
	return contact, nil
}

// CreateContact inserts a new messaging contact.
func (s *Service) CreateContact(ctx context.Context, req CreateContactRequest) (Contact, error) {
	if s.pool == nil {
		return Contact{}, errors.New("messaging pool not configured")
	}
	name := strings.TrimSpace(validate.ScrubNullString(req.Name))
	if name == "" {
		return Contact{}, errors.New("contact name is required")
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO msg_contacts (name, email, phone, external_ref)
		VALUES ($1, $2, $3, $4)
		RETURNING `+contactColumns,
		name,
		db.ToPgText(strings.ToLower(validate.ScrubNullString(req.Email))),
		db.ToPgText(validate.ScrubNullString(req.Phone)),
		db.ToPgText(req.ExternalRef),
	)
	contact, err := scanContact(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			// Lost a create race for the same external ref; return the row
			// that won.
			winner := s.pool.QueryRow(ctx, `
				SELECT `+contactColumns+` FROM msg_contacts WHERE external_ref = $1`,
				db.ToPgText(req.ExternalRef))
			return scanContact(winner)
		}
		return Contact{}, fmt.Errorf("create contact: %w", err)
	}
	s.logger.Info("messaging contact created",
		slog.String("id", contact.ID),
		slog.String("external_ref", contact.ExternalRef),
	)
	return contact, nil
}

const conversationColumns = `id, contact_id, person_id, channel, subject, last_message_at, created_at, updated_at`

// GetConversations lists conversations for a contact, newest activity first.
func (s *Service) GetConversations(ctx context.Context, contactID string) ([]Conversation, error) {
	if s.pool == nil {
		return nil, errors.New("messaging pool not configured")
	}
	pgID, err := db.ParseUUID(contactID)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE contact_id = $1
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC`, pgID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	items := make([]Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, conv)
	}
	return items, rows.Err()
}

func scanContact(row pgx.Row) (Contact, error) {
	var (
		id                       pgtype.UUID
		email, phone, extRef     pgtype.Text
		createdAt, updatedAt     pgtype.Timestamptz
		c                        Contact
	)
	if err := row.Scan(&id, &c.Name, &email, &phone, &extRef, &createdAt, &updatedAt); err != nil {
		return Contact{}, err
	}
	c.ID = db.UUIDToString(id)
	c.Email = db.TextToString(email)
	c.Phone = db.TextToString(phone)
	c.ExternalRef = db.TextToString(extRef)
	c.CreatedAt = db.TimeFromPg(createdAt)
	c.UpdatedAt = db.TimeFromPg(updatedAt)
	return c, nil
}

func scanConversation(row pgx.Row) (Conversation, error) {
	var (
		id, contactID, personID          pgtype.UUID
		subject                          pgtype.Text
		lastMessageAt, createdAt, updAt  pgtype.Timestamptz
		c                                Conversation
	)
	if err := row.Scan(&id, &contactID, &personID, &c.Channel, &subject, &lastMessageAt, &createdAt, &updAt); err != nil {
		return Conversation{}, err
	}
	c.ID = db.UUIDToString(id)
	c.ContactID = db.UUIDToString(contactID)
	c.PersonID = db.UUIDToString(personID)
	c.Subject = db.TextToString(subject)
	c.LastMessageAt = db.TimeFromPg(lastMessageAt)
	c.CreatedAt = db.TimeFromPg(createdAt)
	c.UpdatedAt = db.TimeFromPg(updAt)
	return c, nil
}
