// Package crm owns the canonical person and company records.
package crm

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

// Service provides person and company lifecycle operations.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a CRM service.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "crm")),
	}
}

// PersonColumns is the select list ScanPerson expects.
const PersonColumns = `id, first_name, last_name, email, additional_emails, phone, additional_phones,
	job_title, city, company_id, avatar_url, linkedin_url, mention_count, created_at, updated_at, deleted_at`

// SearchPeople finds live people whose name, email, or phone matches term.
// Results are ordered by mention count; an empty result is not an error.
func (s *Service) SearchPeople(ctx context.Context, term string) ([]Person, error) {
	if s.pool == nil {
		return nil, errors.New("crm pool not configured")
	}
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return []Person{}, nil
	}
	pattern := "%" + trimmed + "%"
	rows, err := s.pool.Query(ctx, `
		SELECT `+PersonColumns+`
		FROM people
		WHERE deleted_at IS NULL
		  AND (first_name || ' ' || last_name ILIKE $1
		       OR email ILIKE $1
		       OR phone ILIKE $1
		       OR $2 = ANY(additional_emails)
		       OR $2 = ANY(additional_phones))
		ORDER BY mention_count DESC, created_at ASC
		LIMIT `+fmt.Sprint(searchLimit), pattern, strings.ToLower(trimmed))
	if err != nil {
		return nil, fmt.Errorf("search people: %w", err)
	}
	defer rows.Close()
	return collectPeople(rows)
}

// ListPeople returns up to limit live people, oldest first. Used by the
// periodic duplicate scan.
func (s *Service) ListPeople(ctx context.Context, limit int) ([]Person, error) {
	if s.pool == nil {
		return nil, errors.New("crm pool not configured")
	}
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+PersonColumns+`
		FROM people
		WHERE deleted_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()
	return collectPeople(rows)
}

// GetPerson returns a live person by ID.
func (s *Service) GetPerson(ctx context.Context, personID string) (Person, error) {
	if s.pool == nil {
		return Person{}, errors.New("crm pool not configured")
	}
	pgID, err := db.ParseUUID(personID)
	if err != nil {
		return Person{}, err
	}
	row := s.pool.QueryRow(ctx, `
		SELECT `+PersonColumns+`
		FROM people
		WHERE id = $1 AND deleted_at IS NULL`, pgID)
	person, err := ScanPerson(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Person{}, ErrPersonNotFound
		}
		return Person{}, err
	}
	return person, nil
}

// CreatePerson validates and inserts a new person. Input strings are
// null-scrubbed and the email is stored lower-cased.
func (s *Service) CreatePerson(ctx context.Context, req CreatePersonRequest) (Person, error) {
	if s.pool == nil {
		return Person{}, errors.New("crm pool not configured")
	}
	first := strings.TrimSpace(validate.ScrubNullString(req.FirstName))
	last := strings.TrimSpace(validate.ScrubNullString(req.LastName))
	email := strings.ToLower(strings.TrimSpace(validate.ScrubNullString(req.Email)))

	if ok, reason := validate.PersonInput(first, last, email); !ok {
		return Person{}, fmt.Errorf("%w: %s", ErrRejected, reason)
	}

	var pgCompanyID pgtype.UUID
	if strings.TrimSpace(req.CompanyID) != "" {
		parsed, err := db.ParseUUID(req.CompanyID)
		if err != nil {
			return Person{}, err
		}
		pgCompanyID = parsed
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO people (first_name, last_name, email, phone, job_title, city, company_id, avatar_url, linkedin_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+PersonColumns,
		first,
		last,
		db.ToPgText(email),
		db.ToPgText(validate.ScrubNullString(req.Phone)),
		db.ToPgText(validate.ScrubNullString(req.JobTitle)),
		db.ToPgText(validate.ScrubNullString(req.City)),
		pgCompanyID,
		db.ToPgText(validate.ScrubNullString(req.AvatarURL)),
		db.ToPgText(validate.ScrubNullString(req.LinkedinURL)),
	)
	person, err := ScanPerson(row)
	if err != nil {
		return Person{}, fmt.Errorf("create person: %w", err)
	}
	s.logger.Info("person created", slog.String("id", person.ID), slog.String("name", person.FullName()))
	return person, nil
}

// UpdatePerson applies the non-nil fields of req to a live person, with
// null-scrubbing on every incoming string.
func (s *Service) UpdatePerson(ctx context.Context, personID string, req UpdatePersonRequest) (Person, error) {
	if s.pool == nil {
		return Person{}, errors.New("crm pool not configured")
	}
	pgID, err := db.ParseUUID(personID)
	if err != nil {
		return Person{}, err
	}

	current, err := s.GetPerson(ctx, personID)
	if err != nil {
		return Person{}, err
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(validate.ScrubNullString(*src))
		}
	}
	apply(&current.FirstName, req.FirstName)
	apply(&current.LastName, req.LastName)
	apply(&current.Phone, req.Phone)
	apply(&current.JobTitle, req.JobTitle)
	apply(&current.City, req.City)
	apply(&current.AvatarURL, req.AvatarURL)
	apply(&current.LinkedinURL, req.LinkedinURL)
	if req.Email != nil {
		current.Email = strings.ToLower(strings.TrimSpace(validate.ScrubNullString(*req.Email)))
	}
	if req.CompanyID != nil {
		current.CompanyID = strings.TrimSpace(*req.CompanyID)
	}

	var pgCompanyID pgtype.UUID
	if current.CompanyID != "" {
		parsed, err := db.ParseUUID(current.CompanyID)
		if err != nil {
			return Person{}, err
		}
		pgCompanyID = parsed
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE people
		SET first_name = $2, last_name = $3, email = $4, phone = $5, job_title = $6,
		    city = $7, company_id = $8, avatar_url = $9, linkedin_url = $10, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+PersonColumns,
		pgID,
		current.FirstName,
		current.LastName,
		db.ToPgText(current.Email),
		db.ToPgText(current.Phone),
		db.ToPgText(current.JobTitle),
		db.ToPgText(current.City),
		pgCompanyID,
		db.ToPgText(current.AvatarURL),
		db.ToPgText(current.LinkedinURL),
	)
	person, err := ScanPerson(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Person{}, ErrPersonNotFound
		}
		return Person{}, fmt.Errorf("update person: %w", err)
	}
	return person, nil
}

// RecordMention bumps a person's mention count. The error is returned so
// callers decide whether the bump was worth failing over; resolution treats
// it as best effort.
func (s *Service) RecordMention(ctx context.Context, personID string) error {
	if s.pool == nil {
		return errors.New("crm pool not configured")
	}
	pgID, err := db.ParseUUID(personID)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `
		UPDATE people SET mention_count = mention_count + 1, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, pgID); err != nil {
		return fmt.Errorf("record mention: %w", err)
	}
	return nil
}

// CompanyColumns is the select list ScanCompany expects.
const CompanyColumns = `id, name, domain, employee_count, city, state, country, linkedin_url,
	is_icp, mention_count, created_at, updated_at, deleted_at`

// SearchCompanies finds live companies whose name or domain matches term.
func (s *Service) SearchCompanies(ctx context.Context, term string) ([]Company, error) {
	if s.pool == nil {
		return nil, errors.New("crm pool not configured")
	}
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return []Company{}, nil
	}
	pattern := "%" + trimmed + "%"
	rows, err := s.pool.Query(ctx, `
		SELECT `+CompanyColumns+`
		FROM companies
		WHERE deleted_at IS NULL AND (name ILIKE $1 OR domain ILIKE $1)
		ORDER BY mention_count DESC, created_at ASC
		LIMIT `+fmt.Sprint(searchLimit), pattern)
	if err != nil {
		return nil, fmt.Errorf("search companies: %w", err)
	}
	defer rows.Close()

	items := make([]Company, 0)
	for rows.Next() {
		company, err := ScanCompany(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, company)
	}
	return items, rows.Err()
}

// GetCompany returns a live company by ID.
func (s *Service) GetCompany(ctx context.Context, companyID string) (Company, error) {
	if s.pool == nil {
		return Company{}, errors.New("crm pool not configured")
	}
	pgID, err := db.ParseUUID(companyID)
	if err != nil {
		return Company{}, err
	}
	row := s.pool.QueryRow(ctx, `
		SELECT `+CompanyColumns+`
		FROM companies
		WHERE id = $1 AND deleted_at IS NULL`, pgID)
	company, err := ScanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, ErrCompanyNotFound
		}
		return Company{}, err
	}
	return company, nil
}

// CreateCompany validates and inserts a new company.
func (s *Service) CreateCompany(ctx context.Context, req CreateCompanyRequest) (Company, error) {
	if s.pool == nil {
		return Company{}, errors.New("crm pool not configured")
	}
	name := strings.TrimSpace(validate.ScrubNullString(req.Name))
	if ok, reason := validate.CompanyName(name); !ok {
		return Company{}, fmt.Errorf("%w: %s", ErrRejected, reason)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO companies (name, domain, employee_count, city, state, country, linkedin_url, is_icp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+CompanyColumns,
		name,
		db.ToPgText(strings.ToLower(validate.ScrubNullString(req.Domain))),
		toPgInt4(req.EmployeeCount),
		db.ToPgText(validate.ScrubNullString(req.City)),
		db.ToPgText(validate.ScrubNullString(req.State)),
		db.ToPgText(validate.ScrubNullString(req.Country)),
		db.ToPgText(validate.ScrubNullString(req.LinkedinURL)),
		req.IsICP,
	)
	company, err := ScanCompany(row)
	if err != nil {
		return Company{}, fmt.Errorf("create company: %w", err)
	}
	s.logger.Info("company created", slog.String("id", company.ID), slog.String("name", company.Name))
	return company, nil
}

func collectPeople(rows pgx.Rows) ([]Person, error) {
	items := make([]Person, 0)
	for rows.Next() {
		person, err := ScanPerson(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, person)
	}
	return items, rows.Err()
}

// ScanPerson reads one people row in PersonColumns order.
func ScanPerson(row pgx.Row) (Person, error) {
	var (
		id, companyID                                       pgtype.UUID
		email, phone, jobTitle, city, avatarURL, socialURL  pgtype.Text
		additionalEmails, additionalPhones                  []string
		createdAt, updatedAt, deletedAt                     pgtype.Timestamptz
		p                                                   Person
	)
	err := row.Scan(&id, &p.FirstName, &p.LastName, &email, &additionalEmails, &phone, &additionalPhones,
		&jobTitle, &city, &companyID, &avatarURL, &socialURL, &p.MentionCount, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return Person{}, err
	}
	p.ID = db.UUIDToString(id)
	p.Email = db.TextToString(email)
	p.Phone = db.TextToString(phone)
	p.JobTitle = db.TextToString(jobTitle)
	p.City = db.TextToString(city)
	p.CompanyID = db.UUIDToString(companyID)
	p.AvatarURL = db.TextToString(avatarURL)
	p.LinkedinURL = db.TextToString(socialURL)
	p.AdditionalEmails = additionalEmails
	p.AdditionalPhones = additionalPhones
	if p.AdditionalEmails == nil {
		p.AdditionalEmails = []string{}
	}
	if p.AdditionalPhones == nil {
		p.AdditionalPhones = []string{}
	}
	p.CreatedAt = db.TimeFromPg(createdAt)
	p.UpdatedAt = db.TimeFromPg(updatedAt)
	p.DeletedAt = db.TimeFromPg(deletedAt)
	return p, nil
}

// ScanCompany reads one companies row in CompanyColumns order.
func ScanCompany(row pgx.Row) (Company, error) {
	var (
		id                                    pgtype.UUID
		domain, city, state, country, social  pgtype.Text
		employeeCount                         pgtype.Int4
		createdAt, updatedAt, deletedAt       pgtype.Timestamptz
		c                                     Company
	)
	err := row.Scan(&id, &c.Name, &domain, &employeeCount, &city, &state, &country, &social,
		&c.IsICP, &c.MentionCount, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return Company{}, err
	}
	c.ID = db.UUIDToString(id)
	c.Domain = db.TextToString(domain)
	if employeeCount.Valid {
		c.EmployeeCount = int(employeeCount.Int32)
	}
	c.City = db.TextToString(city)
	c.State = db.TextToString(state)
	c.Country = db.TextToString(country)
	c.LinkedinURL = db.TextToString(social)
	c.CreatedAt = db.TimeFromPg(createdAt)
	c.UpdatedAt = db.TimeFromPg(updatedAt)
	c.DeletedAt = db.TimeFromPg(deletedAt)
	return c, nil
}

func toPgInt4(value int) pgtype.Int4 {
	return pgtype.Int4{Int32: int32(value), Valid: value > 0}
}
