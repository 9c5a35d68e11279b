// Package identity resolves (channel, identifier) pairs to per-system
// record IDs and persists the mapping with coalescing upserts.
package identity

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
)

// Store owns the identity_mappings table.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates an identity mapping store.
func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		pool:   pool,
		logger: log.With(slog.String("store", "identity")),
	}
}

// Fill implements the coalesce rule for one field: incoming wins only when
// non-empty; an empty incoming value never clears a stored one.
func Fill(existing, incoming string) string {
	if strings.TrimSpace(incoming) != "" {
		return incoming
	}
	return existing
}

const mappingColumns = `id, channel, identifier, display_name, person_id, messaging_contact_id, memory_entity_id, created_at, updated_at`

// Get returns the mapping for (channel, identifier), or ErrMappingNotFound.
func (s *Store) Get(ctx context.Context, channel, identifier string) (Mapping, error) {
	if s.pool == nil {
		return Mapping{}, errors.New("identity pool not configured")
	}
	row := s.pool.QueryRow(ctx, `
		SELECT `+mappingColumns+`
		FROM identity_mappings
		WHERE channel = $1 AND identifier = $2`,
		NormalizeChannel(channel), strings.TrimSpace(identifier))
	mapping, err := scanMapping(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Mapping{}, ErrMappingNotFound
		}
		return Mapping{}, err
	}
	return mapping, nil
}

// Upsert inserts the mapping or, on (channel, identifier) conflict, fills
// gaps in the stored row. The conflict update coalesces per column inside
// the statement, so a non-null stored ID is never overwritten with null and
// two concurrent resolutions of the same pair cannot both insert. Returns
// the stored row.
func (s *Store) Upsert(ctx context.Context, m Mapping) (Mapping, error) {
	if s.pool == nil {
		return Mapping{}, errors.New("identity pool not configured")
	}
	channel := NormalizeChannel(m.Channel)
	identifier := strings.TrimSpace(m.Identifier)
	if channel == "" || identifier == "" {
		return Mapping{}, errors.New("channel and identifier are required")
	}

	personID, err := optionalUUID(m.PersonID)
	if err != nil {
		return Mapping{}, fmt.Errorf("person id: %w", err)
	}
	contactID, err := optionalUUID(m.MessagingContactID)
	if err != nil {
		return Mapping{}, fmt.Errorf("messaging contact id: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO identity_mappings (channel, identifier, display_name, person_id, messaging_contact_id, memory_entity_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT identity_mappings_channel_identifier_unique DO UPDATE SET
			display_name         = COALESCE(EXCLUDED.display_name, identity_mappings.display_name),
			person_id            = COALESCE(EXCLUDED.person_id, identity_mappings.person_id),
			messaging_contact_id = COALESCE(EXCLUDED.messaging_contact_id, identity_mappings.messaging_contact_id),
			memory_entity_id     = COALESCE(EXCLUDED.memory_entity_id, identity_mappings.memory_entity_id),
			updated_at           = now()
		RETURNING `+mappingColumns,
		channel,
		identifier,
		db.ToPgText(m.DisplayName),
		personID,
		contactID,
		db.ToPgText(m.MemoryEntityID),
	)
	stored, err := scanMapping(row)
	if err != nil {
		return Mapping{}, fmt.Errorf("upsert mapping: %w", err)
	}
	return stored, nil
}

// FindByIdentifierOrName returns mappings whose identifier equals the input
// or whose display name contains it (case-insensitive).
func (s *Store) FindByIdentifierOrName(ctx context.Context, identifier string) ([]Mapping, error) {
	if s.pool == nil {
		return nil, errors.New("identity pool not configured")
	}
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return []Mapping{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+mappingColumns+`
		FROM identity_mappings
		WHERE identifier = $1 OR display_name ILIKE $2
		ORDER BY updated_at DESC`,
		trimmed, "%"+trimmed+"%")
	if err != nil {
		return nil, fmt.Errorf("find mappings: %w", err)
	}
	defer rows.Close()
	return collectMappings(rows)
}

// ListRecent returns up to limit mappings by most recent update. Used as the
// candidate pool for fuzzy display-name matching.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Mapping, error) {
	if s.pool == nil {
		return nil, errors.New("identity pool not configured")
	}
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+mappingColumns+`
		FROM identity_mappings
		ORDER BY updated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()
	return collectMappings(rows)
}

// ListByPerson returns every mapping pointing at a person.
func (s *Store) ListByPerson(ctx context.Context, personID string) ([]Mapping, error) {
	if s.pool == nil {
		return nil, errors.New("identity pool not configured")
	}
	pgID, err := db.ParseUUID(personID)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+mappingColumns+`
		FROM identity_mappings
		WHERE person_id = $1
		ORDER BY created_at ASC`, pgID)
	if err != nil {
		return nil, fmt.Errorf("list mappings by person: %w", err)
	}
	defer rows.Close()
	return collectMappings(rows)
}

func collectMappings(rows pgx.Rows) ([]Mapping, error) {
	items := make([]Mapping, 0)
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, mapping)
	}
	return items, rows.Err()
}

func scanMapping(row pgx.Row) (Mapping, error) {
	var (
		id, personID, contactID pgtype.UUID
		displayName, memoryID   pgtype.Text
		createdAt, updatedAt    pgtype.Timestamptz
		m                       Mapping
	)
	if err := row.Scan(&id, &m.Channel, &m.Identifier, &displayName, &personID, &contactID, &memoryID, &createdAt, &updatedAt); err != nil {
		return Mapping{}, err
	}
	m.ID = db.UUIDToString(id)
	m.DisplayName = db.TextToString(displayName)
	m.PersonID = db.UUIDToString(personID)
	m.MessagingContactID = db.UUIDToString(contactID)
	m.MemoryEntityID = db.TextToString(memoryID)
	m.CreatedAt = db.TimeFromPg(createdAt)
	m.UpdatedAt = db.TimeFromPg(updatedAt)
	return m, nil
}

func optionalUUID(id string) (pgtype.UUID, error) {
	if strings.TrimSpace(id) == "" {
		return pgtype.UUID{}, nil
	}
	return db.ParseUUID(id)
}
