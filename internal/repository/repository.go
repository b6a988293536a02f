// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package repository persists users, projects, sections and refinement
// history for the reference services in a SQLite database. Every project
// query is scoped to the owning user; a project that belongs to someone
// else is reported as not found.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/pdiddy/doc-studio/internal/apperr"
	"github.com/pdiddy/doc-studio/internal/outline"
	"github.com/pdiddy/doc-studio/pkg/types"
)

const dbFile = "doc-studio.db"

// User is an account that owns projects.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Repository wraps the SQLite database.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates dataDir/doc-studio.db and its schema.
func Open(dataDir string) (*Repository, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	r := &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := r.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return r, nil
}

// Close releases the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping checks that the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			type TEXT NOT NULL,
			topic TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id)`,
		`CREATE TABLE IF NOT EXISTS sections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			position INTEGER NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			UNIQUE(project_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS refinements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			section_id INTEGER NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
			original TEXT NOT NULL,
			instruction TEXT NOT NULL,
			refined TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refinements_section ON refinements(section_id)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// CreateUser stores a new account. A taken email is a Conflict.
func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || passwordHash == "" {
		return nil, apperr.New(apperr.KindValidation, "email and password are required")
	}
	now := r.now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?)`,
		email, passwordHash, now.Format(time.RFC3339Nano))
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, apperr.Newf(apperr.KindConflict, "email %s is already registered", email)
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading user id: %w", err)
	}
	return &User{ID: id, Email: email, PasswordHash: passwordHash, CreatedAt: now}, nil
}

// UserByEmail looks an account up by email.
func (r *Repository) UserByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))))
}

// UserByID looks an account up by id.
func (r *Repository) UserByID(ctx context.Context, id int64) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id))
}

func (r *Repository) scanUser(row *sql.Row) (*User, error) {
	var (
		u       User
		created string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return nil, fmt.Errorf("reading user: %w", err)
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

// CreateProject validates draft and stores it with its sections in one
// transaction.
func (r *Repository) CreateProject(ctx context.Context, ownerID int64, draft types.ProjectDraft) (*types.Project, error) {
	if err := outline.ValidateDraft(draft); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO projects (owner_id, title, type, topic, created_at) VALUES (?, ?, ?, ?, ?)`,
		ownerID, strings.TrimSpace(draft.Title), string(draft.Type), strings.TrimSpace(draft.Topic),
		r.now().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("inserting project: %w", err)
	}
	projectID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading project id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sections (project_id, title, position) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range draft.Sections {
		if _, err := stmt.ExecContext(ctx, projectID, strings.TrimSpace(s.Title), s.Order); err != nil {
			return nil, fmt.Errorf("inserting section %d: %w", s.Order, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing project: %w", err)
	}
	return r.GetProject(ctx, ownerID, projectID)
}

// GetProject returns one project with its sections and their refinement
// history.
func (r *Repository) GetProject(ctx context.Context, ownerID, id int64) (*types.Project, error) {
	var (
		p       types.Project
		pt      string
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, type, topic, created_at FROM projects WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	).Scan(&p.ID, &p.Title, &pt, &p.Topic, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Newf(apperr.KindNotFound, "project %d not found", id)
		}
		return nil, fmt.Errorf("reading project: %w", err)
	}
	p.Type = types.ProjectType(pt)
	p.CreatedAt = parseTime(created)

	sections, err := r.sections(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Sections = sections
	return &p, nil
}

// ListProjects returns the owner's projects, newest first, with sections.
func (r *Repository) ListProjects(ctx context.Context, ownerID int64) ([]types.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, type, topic, created_at FROM projects WHERE owner_id = ? ORDER BY id DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	projects := []types.Project{}
	for rows.Next() {
		var (
			p       types.Project
			pt      string
			created string
		)
		if err := rows.Scan(&p.ID, &p.Title, &pt, &p.Topic, &created); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		p.Type = types.ProjectType(pt)
		p.CreatedAt = parseTime(created)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}

	for i := range projects {
		sections, err := r.sections(ctx, projects[i].ID)
		if err != nil {
			return nil, err
		}
		projects[i].Sections = sections
	}
	return projects, nil
}

func (r *Repository) sections(ctx context.Context, projectID int64) ([]types.Section, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, position, content FROM sections WHERE project_id = ? ORDER BY position`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("reading sections: %w", err)
	}
	defer rows.Close()

	sections := []types.Section{}
	index := make(map[int64]int)
	for rows.Next() {
		s := types.Section{ProjectID: projectID}
		if err := rows.Scan(&s.ID, &s.Title, &s.Order, &s.Content); err != nil {
			return nil, fmt.Errorf("scanning section: %w", err)
		}
		index[s.ID] = len(sections)
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sections: %w", err)
	}

	hist, err := r.db.QueryContext(ctx,
		`SELECT r.section_id, r.original, r.instruction, r.refined, r.created_at
		 FROM refinements r JOIN sections s ON s.id = r.section_id
		 WHERE s.project_id = ? ORDER BY r.id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("reading refinements: %w", err)
	}
	defer hist.Close()

	for hist.Next() {
		var (
			sectionID int64
			e         types.RefinementEntry
			created   string
		)
		if err := hist.Scan(&sectionID, &e.Original, &e.Instruction, &e.Refined, &created); err != nil {
			return nil, fmt.Errorf("scanning refinement: %w", err)
		}
		e.Timestamp = parseTime(created)
		if i, ok := index[sectionID]; ok {
			sections[i].RefinementHistory = append(sections[i].RefinementHistory, e)
		}
	}
	return sections, hist.Err()
}

// SectionWithProject returns the project owning sectionID together with
// the section.
func (r *Repository) SectionWithProject(ctx context.Context, ownerID, sectionID int64) (*types.Project, types.Section, error) {
	var projectID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT s.project_id FROM sections s JOIN projects p ON p.id = s.project_id
		 WHERE s.id = ? AND p.owner_id = ?`, sectionID, ownerID,
	).Scan(&projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.Section{}, apperr.Newf(apperr.KindNotFound, "section %d not found", sectionID)
		}
		return nil, types.Section{}, fmt.Errorf("reading section: %w", err)
	}

	p, err := r.GetProject(ctx, ownerID, projectID)
	if err != nil {
		return nil, types.Section{}, err
	}
	s, ok := p.Section(sectionID)
	if !ok {
		return nil, types.Section{}, apperr.Newf(apperr.KindNotFound, "section %d not found", sectionID)
	}
	return p, s, nil
}

// SetContents writes generated content for several sections of one
// project. Either every section is updated or none is.
func (r *Repository) SetContents(ctx context.Context, ownerID, projectID int64, contents map[int64]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var owned int
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM projects WHERE id = ? AND owner_id = ?`, projectID, ownerID,
	).Scan(&owned); err != nil {
		return fmt.Errorf("checking project: %w", err)
	}
	if owned == 0 {
		return apperr.Newf(apperr.KindNotFound, "project %d not found", projectID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE sections SET content = ? WHERE id = ? AND project_id = ?`)
	if err != nil {
		return fmt.Errorf("preparing update: %w", err)
	}
	defer stmt.Close()

	for sectionID, content := range contents {
		res, err := stmt.ExecContext(ctx, content, sectionID, projectID)
		if err != nil {
			return fmt.Errorf("updating section %d: %w", sectionID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.Newf(apperr.KindNotFound, "section %d is not part of project %d", sectionID, projectID)
		}
	}
	return tx.Commit()
}

// ApplyRefinement replaces a section's content with entry.Refined and
// appends entry to its history in one transaction. A zero timestamp is
// set to now.
func (r *Repository) ApplyRefinement(ctx context.Context, ownerID, sectionID int64, entry types.RefinementEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sections SET content = ?
		 WHERE id = ? AND project_id IN (SELECT id FROM projects WHERE owner_id = ?)`,
		entry.Refined, sectionID, ownerID)
	if err != nil {
		return fmt.Errorf("updating section: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Newf(apperr.KindNotFound, "section %d not found", sectionID)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO refinements (section_id, original, instruction, refined, created_at) VALUES (?, ?, ?, ?, ?)`,
		sectionID, entry.Original, entry.Instruction, entry.Refined, entry.Timestamp.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("recording refinement: %w", err)
	}
	return tx.Commit()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
