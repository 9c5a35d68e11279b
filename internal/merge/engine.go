// Package merge collapses duplicate canonical records into a single keeper.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unitecrm/unite/internal/crm"
	"github.com/unitecrm/unite/internal/db"
)

// Engine performs person and company merges. Every merge runs as a single
// transaction: field reconciliation, re-pointing of dependent rows, the
// provenance note, and the loser's soft delete either all land or none do.
type Engine struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewEngine creates a merge engine.
func NewEngine(log *slog.Logger, pool *pgxpool.Pool) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		pool:   pool,
		logger: log.With(slog.String("service", "merge")),
	}
}

// MergePeople folds the loser person into the keeper and soft-deletes the
// loser. Returns (nil, nil) when either endpoint is missing or already
// deleted; nothing is written in that case.
func (e *Engine) MergePeople(ctx context.Context, keeperID, loserID string) (*crm.Person, error) {
	if e.pool == nil {
		return nil, errors.New("merge pool not configured")
	}
	if keeperID == loserID {
		return nil, nil
	}

	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback(ctx)

	keeper, ok, err := lockPerson(ctx, tx, keeperID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	loser, ok, err := lockPerson(ctx, tx, loserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	keeperUUID, err := db.ParseUUID(keeper.ID)
	if err != nil {
		return nil, fmt.Errorf("keeper id: %w", err)
	}
	loserUUID, err := db.ParseUUID(loser.ID)
	if err != nil {
		return nil, fmt.Errorf("loser id: %w", err)
	}

	merged := fillPerson(keeper, loser)
	companyID, err := uuidParam(merged.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("company id: %w", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE people
		SET email = $2, additional_emails = $3, phone = $4, additional_phones = $5,
		    job_title = $6, city = $7, company_id = $8, avatar_url = $9, linkedin_url = $10,
		    mention_count = $11, updated_at = now()
		WHERE id = $1`,
		keeperUUID, db.ToPgText(merged.Email), merged.AdditionalEmails,
		db.ToPgText(merged.Phone), merged.AdditionalPhones,
		db.ToPgText(merged.JobTitle), db.ToPgText(merged.City), companyID,
		db.ToPgText(merged.AvatarURL), db.ToPgText(merged.LinkedinURL), merged.MentionCount)
	if err != nil {
		return nil, fmt.Errorf("update keeper: %w", err)
	}

	repoint := []string{
		`UPDATE identity_mappings SET person_id = $1, updated_at = now() WHERE person_id = $2`,
		`UPDATE conversations SET person_id = $1, updated_at = now() WHERE person_id = $2`,
		`UPDATE notes SET person_id = $1, updated_at = now() WHERE person_id = $2`,
		`UPDATE tasks SET person_id = $1, updated_at = now() WHERE person_id = $2`,
	}
	for _, stmt := range repoint {
		if _, err := tx.Exec(ctx, stmt, keeperUUID, loserUUID); err != nil {
			return nil, fmt.Errorf("repoint dependents: %w", err)
		}
	}

	body := fmt.Sprintf("Merged duplicate contact %q (id %s) into this record.", loser.FullName(), loser.ID)
	if _, err := tx.Exec(ctx,
		`INSERT INTO notes (person_id, body) VALUES ($1, $2)`, keeperUUID, body); err != nil {
		return nil, fmt.Errorf("provenance note: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE people SET deleted_at = now(), updated_at = now() WHERE id = $1`, loserUUID); err != nil {
		return nil, fmt.Errorf("soft delete loser: %w", err)
	}

	refreshed, err := crm.ScanPerson(tx.QueryRow(ctx,
		`SELECT `+crm.PersonColumns+` FROM people WHERE id = $1`, keeperUUID))
	if err != nil {
		return nil, fmt.Errorf("reload keeper: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit merge: %w", err)
	}

	e.logger.Info("merged people",
		slog.String("keeper_id", keeper.ID), slog.String("loser_id", loser.ID))
	return &refreshed, nil
}

// MergeCompanies folds the loser company into the keeper. overrides names
// keeper fields to set before reconciliation (name, domain, city, state,
// country, linkedin_url); unknown keys are rejected. People, notes, and
// tasks that referenced the loser are re-pointed to the keeper. Returns
// (nil, nil) when either endpoint is missing or already deleted.
func (e *Engine) MergeCompanies(ctx context.Context, keeperID, loserID string, overrides map[string]string) (*crm.Company, error) {
	if e.pool == nil {
		return nil, errors.New("merge pool not configured")
	}
	if keeperID == loserID {
		return nil, nil
	}

	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback(ctx)

	keeper, ok, err := lockCompany(ctx, tx, keeperID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	loser, ok, err := lockCompany(ctx, tx, loserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	keeperUUID, err := db.ParseUUID(keeper.ID)
	if err != nil {
		return nil, fmt.Errorf("keeper id: %w", err)
	}
	loserUUID, err := db.ParseUUID(loser.ID)
	if err != nil {
		return nil, fmt.Errorf("loser id: %w", err)
	}

	keeper, err = applyOverrides(keeper, overrides)
	if err != nil {
		return nil, err
	}
	merged := fillCompany(keeper, loser)
	_, err = tx.Exec(ctx, `
		UPDATE companies
		SET name = $2, domain = $3, employee_count = $4, city = $5, state = $6,
		    country = $7, linkedin_url = $8, is_icp = $9, mention_count = $10, updated_at = now()
		WHERE id = $1`,
		keeperUUID, merged.Name, db.ToPgText(merged.Domain), employeeCountParam(merged.EmployeeCount),
		db.ToPgText(merged.City), db.ToPgText(merged.State), db.ToPgText(merged.Country),
		db.ToPgText(merged.LinkedinURL), merged.IsICP, merged.MentionCount)
	if err != nil {
		return nil, fmt.Errorf("update keeper: %w", err)
	}

	repoint := []string{
		`UPDATE people SET company_id = $1, updated_at = now() WHERE company_id = $2`,
		`UPDATE notes SET company_id = $1, updated_at = now() WHERE company_id = $2`,
		`UPDATE tasks SET company_id = $1, updated_at = now() WHERE company_id = $2`,
	}
	for _, stmt := range repoint {
		if _, err := tx.Exec(ctx, stmt, keeperUUID, loserUUID); err != nil {
			return nil, fmt.Errorf("repoint dependents: %w", err)
		}
	}

	body := fmt.Sprintf("Merged duplicate company %q (id %s) into this record.", loser.Name, loser.ID)
	if _, err := tx.Exec(ctx,
		`INSERT INTO notes (company_id, body) VALUES ($1, $2)`, keeperUUID, body); err != nil {
		return nil, fmt.Errorf("provenance note: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE companies SET deleted_at = now(), updated_at = now() WHERE id = $1`, loserUUID); err != nil {
		return nil, fmt.Errorf("soft delete loser: %w", err)
	}

	refreshed, err := crm.ScanCompany(tx.QueryRow(ctx,
		`SELECT `+crm.CompanyColumns+` FROM companies WHERE id = $1`, keeperUUID))
	if err != nil {
		return nil, fmt.Errorf("reload keeper: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit merge: %w", err)
	}

	e.logger.Info("merged companies",
		slog.String("keeper_id", keeper.ID), slog.String("loser_id", loser.ID))
	return &refreshed, nil
}

// lockPerson loads a live person under FOR UPDATE. ok is false when the row
// is absent or soft-deleted; an invalid UUID counts as absent.
func lockPerson(ctx context.Context, tx pgx.Tx, id string) (crm.Person, bool, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return crm.Person{}, false, nil
	}
	p, err := crm.ScanPerson(tx.QueryRow(ctx,
		`SELECT `+crm.PersonColumns+` FROM people WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, pgID))
	if err == pgx.ErrNoRows {
		return crm.Person{}, false, nil
	}
	if err != nil {
		return crm.Person{}, false, fmt.Errorf("load person %s: %w", id, err)
	}
	return p, true, nil
}

func lockCompany(ctx context.Context, tx pgx.Tx, id string) (crm.Company, bool, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return crm.Company{}, false, nil
	}
	c, err := crm.ScanCompany(tx.QueryRow(ctx,
		`SELECT `+crm.CompanyColumns+` FROM companies WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, pgID))
	if err == pgx.ErrNoRows {
		return crm.Company{}, false, nil
	}
	if err != nil {
		return crm.Company{}, false, fmt.Errorf("load company %s: %w", id, err)
	}
	return c, true, nil
}

func uuidParam(id string) (any, error) {
	if id == "" {
		return nil, nil
	}
	return db.ParseUUID(id)
}

func employeeCountParam(count int) any {
	if count <= 0 {
		return nil
	}
	return count
}
