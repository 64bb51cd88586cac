// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package project persists finished research runs. A Store keeps projects
// in SQLite across three tables: the project row, its workbench content
// (canvas blocks, insights, narrative), and the papers it was built from.
package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/farabi/pkg/types"
)

// ToneCasual is the tone recorded for every generated script.
const ToneCasual = "casual"

// SavedMessage is the confirmation returned with a new project id.
const SavedMessage = "Project saved successfully"

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when no project has the requested id.
var ErrNotFound = errors.New("project not found")

var validate = validator.New()

// Saver persists a finished blueprint and returns the new project id. The
// gateway client and Store both implement it.
type Saver interface {
	SaveProject(ctx context.Context, req types.SaveProjectRequest) (string, error)
}

// Store manages the project SQLite database.
type Store struct {
	db    *sql.DB
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

// Open opens or creates the project database at cfg.Path and creates the
// schema if it does not exist.
func Open(cfg types.StoreConfig, log *zap.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("store path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		db:    db,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			query_topic TEXT,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_user_id ON projects(user_id)`,
		`CREATE TABLE IF NOT EXISTS workbench_content (
			project_id TEXT PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
			canvas_content TEXT NOT NULL,
			key_insights TEXT NOT NULL,
			narrative TEXT NOT NULL,
			refs TEXT,
			research_report TEXT,
			tone_style TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS research_papers (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			paper_id TEXT,
			title TEXT,
			authors TEXT,
			year INTEGER,
			citation_count INTEGER,
			url TEXT,
			pdf_url TEXT,
			is_open_access INTEGER NOT NULL DEFAULT 0,
			abstract TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_research_papers_project_id ON research_papers(project_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveProject validates req and writes the project, its canvas content, and
// its papers in one transaction. The project starts as a draft.
func (s *Store) SaveProject(ctx context.Context, req types.SaveProjectRequest) (string, error) {
	if err := validate.Struct(req); err != nil {
		return "", fmt.Errorf("invalid project: %w", err)
	}

	id := s.newID()
	canvas := CanvasBlocks(req.Title, req.Narrative, req.KeyInsights)

	canvasJSON, err := json.Marshal(canvas)
	if err != nil {
		return "", fmt.Errorf("encoding canvas: %w", err)
	}
	insightsJSON, _ := json.Marshal(nonNil(req.KeyInsights))
	narrativeJSON, _ := json.Marshal(req.Narrative)
	refsJSON, _ := json.Marshal(nonNil(req.References))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, user_id, title, query_topic, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, req.UserID, req.Title, req.QueryTopic, string(types.ProjectDraft),
		s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("inserting project: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO workbench_content (project_id, canvas_content, key_insights, narrative, refs, research_report, tone_style)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, string(canvasJSON), string(insightsJSON), string(narrativeJSON),
		string(refsJSON), req.ResearchReport, ToneCasual,
	)
	if err != nil {
		return "", fmt.Errorf("inserting workbench content: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO research_papers (project_id, position, paper_id, title, authors, year, citation_count, url, pdf_url, is_open_access, abstract)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing paper insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range req.Papers {
		authorsJSON, _ := json.Marshal(nonNil(p.Authors))
		_, err := stmt.ExecContext(ctx,
			id, i, p.PaperID, p.Title, string(authorsJSON),
			p.Year, p.CitationCount, p.URL, p.PDFURL, p.IsOpenAccess(), p.Abstract,
		)
		if err != nil {
			return "", fmt.Errorf("inserting paper %s: %w", p.PaperID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing project: %w", err)
	}
	s.log.Info("project saved",
		zap.String("project_id", id),
		zap.String("title", req.Title),
		zap.Int("papers", len(req.Papers)))
	return id, nil
}

// Load returns the project with the given id, or ErrNotFound.
func (s *Store) Load(ctx context.Context, id string) (*types.Project, error) {
	var (
		p         types.Project
		status    string
		createdAt string
		topic     sql.NullString
		canvas    string
		insights  string
		narrative string
		refs      sql.NullString
		report    sql.NullString
		tone      sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT p.id, p.user_id, p.title, p.query_topic, p.status, p.created_at,
		        w.canvas_content, w.key_insights, w.narrative, w.refs, w.research_report, w.tone_style
		 FROM projects p JOIN workbench_content w ON w.project_id = p.id
		 WHERE p.id = ?`, id,
	).Scan(&p.ID, &p.UserID, &p.Title, &topic, &status, &createdAt,
		&canvas, &insights, &narrative, &refs, &report, &tone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying project: %w", err)
	}

	p.QueryTopic = topic.String
	p.Status = types.ProjectStatus(status)
	p.ResearchReport = report.String
	p.ToneStyle = tone.String
	if p.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(canvas), &p.Canvas); err != nil {
		return nil, fmt.Errorf("decoding canvas: %w", err)
	}
	if err := json.Unmarshal([]byte(insights), &p.KeyInsights); err != nil {
		return nil, fmt.Errorf("decoding key insights: %w", err)
	}
	if err := json.Unmarshal([]byte(narrative), &p.Narrative); err != nil {
		return nil, fmt.Errorf("decoding narrative: %w", err)
	}
	if refs.Valid && refs.String != "" {
		if err := json.Unmarshal([]byte(refs.String), &p.References); err != nil {
			return nil, fmt.Errorf("decoding references: %w", err)
		}
	}

	papers, err := s.papers(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Papers = papers
	return &p, nil
}

func (s *Store) papers(ctx context.Context, projectID string) ([]types.Paper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_id, title, authors, year, citation_count, url, pdf_url, abstract
		 FROM research_papers WHERE project_id = ? ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var papers []types.Paper
	for rows.Next() {
		var p types.Paper
		var paperID, title, authors, url, pdfURL, abstr sql.NullString
		var year, cites sql.NullInt64
		if err := rows.Scan(&paperID, &title, &authors, &year, &cites, &url, &pdfURL, &abstr); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		p.PaperID = paperID.String
		p.Title = title.String
		if authors.Valid && authors.String != "" {
			if err := json.Unmarshal([]byte(authors.String), &p.Authors); err != nil {
				return nil, fmt.Errorf("decoding authors: %w", err)
			}
			if len(p.Authors) == 0 {
				p.Authors = nil
			}
		}
		p.Year = intPtr(year)
		p.CitationCount = intPtr(cites)
		p.URL = strPtr(url)
		p.PDFURL = strPtr(pdfURL)
		p.Abstract = strPtr(abstr)
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// List returns project summaries, newest first. An empty userID lists every
// project.
func (s *Store) List(ctx context.Context, userID string) ([]types.ProjectSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.title, p.query_topic, p.status, p.created_at,
		        (SELECT count(*) FROM research_papers r WHERE r.project_id = p.id)
		 FROM projects p
		 WHERE ? = '' OR p.user_id = ?
		 ORDER BY p.created_at DESC, p.id`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var out []types.ProjectSummary
	for rows.Next() {
		var (
			ps        types.ProjectSummary
			topic     sql.NullString
			status    string
			createdAt string
		)
		if err := rows.Scan(&ps.ID, &ps.Title, &topic, &status, &createdAt, &ps.PaperCount); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		ps.QueryTopic = topic.String
		ps.Status = types.ProjectStatus(status)
		if ps.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func strPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
