package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"campusassist/internal/apperr"
	"campusassist/internal/config"
	"campusassist/internal/core"
	"campusassist/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL: %w", apperr.ErrConfig)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.FirstName, user.Email, user.PasswordHash, user.Role)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, role, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Documents

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	tags, err := json.Marshal(doc.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	var meta any
	if !doc.Metadata.Empty() {
		b, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		meta = b
	}
	var emb any
	if len(doc.Embedding) > 0 {
		emb = pgvector.NewVector(doc.Embedding)
	}
	var parent any
	if doc.ParentDocumentID != "" {
		parent = doc.ParentDocumentID
	}
	var chunkIdx, chunkCnt any
	if doc.IsChunk {
		chunkIdx = doc.ChunkIndex
	}
	if doc.ChunkCount > 0 {
		chunkCnt = doc.ChunkCount
	}

	const q = `
		INSERT INTO documents
			(id, title, content, category, embedding, uploaded_by, visible, tags,
			 metadata, source_file_key, is_chunk, parent_document_id, chunk_index,
			 chunk_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
	`
	_, err = c.db.ExecContext(ctx, q,
		doc.ID, doc.Title, doc.Content, string(doc.Category), emb, doc.UploadedBy,
		doc.Visible, tags, meta, doc.SourceFileKey, doc.IsChunk, parent, chunkIdx, chunkCnt)
	return err
}

const documentCols = `
	id, title, content, category, uploaded_by, visible, tags, view_count,
	metadata, source_file_key, is_chunk, parent_document_id, chunk_index,
	chunk_count, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	var (
		d        models.Document
		tags     []byte
		meta     []byte
		parent   sql.NullString
		chunkIdx sql.NullInt64
		chunkCnt sql.NullInt64
	)
	err := row.Scan(
		&d.ID, &d.Title, &d.Content, &d.Category, &d.UploadedBy, &d.Visible,
		&tags, &d.ViewCount, &meta, &d.SourceFileKey, &d.IsChunk, &parent,
		&chunkIdx, &chunkCnt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &d.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if len(meta) > 0 {
		d.Metadata = &models.DocumentMetadata{}
		if err := json.Unmarshal(meta, d.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	d.ParentDocumentID = parent.String
	d.ChunkIndex = int(chunkIdx.Int64)
	d.ChunkCount = int(chunkCnt.Int64)
	return &d, nil
}

// GetDocumentByID reads one document and bumps its view counter in the
// same statement. Returns apperr.ErrNotFound for unknown ids.
func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		UPDATE documents SET view_count = view_count + 1
		WHERE id = $1
		RETURNING` + documentCols
	doc, err := scanDocument(c.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns visible standalone (non-chunk) documents,
// newest first. Chunks stay reachable through search only.
func (c *DatabaseClient) ListDocuments(ctx context.Context, limit, offset int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
		SELECT` + documentCols + `
		FROM documents
		WHERE visible AND NOT is_chunk
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := c.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document; the parent_document_id FK cascades
// the delete to its chunks.
func (c *DatabaseClient) DeleteDocument(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// VectorSearch finds the documents nearest to queryVec by cosine
// distance, drawing from a candidate pool before final ranking. The
// returned score is the engine metric (2-dist)/2 mapped into [0,1].
func (c *DatabaseClient) VectorSearch(ctx context.Context, queryVec []float32, candidates, limit int) ([]models.ScoredDocument, error) {
	if limit <= 0 {
		limit = 3
	}
	if candidates < limit {
		candidates = limit * 10
	}
	const q = `
		SELECT c.id, c.title, c.content, c.category, c.uploaded_by, c.visible,
		       c.tags, c.view_count, c.metadata, c.source_file_key, c.is_chunk,
		       c.parent_document_id, c.chunk_index, c.chunk_count, c.created_at,
		       c.updated_at, c.score
		FROM (
			SELECT ` + documentCols + `, 1 - (embedding <=> $1) / 2 AS score
			FROM documents
			WHERE visible AND embedding IS NOT NULL
			ORDER BY embedding <=> $1
			LIMIT $2
		) c
		ORDER BY c.score DESC
		LIMIT $3
	`
	rows, err := c.db.QueryContext(ctx, q, pgvector.NewVector(queryVec), candidates, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScoredDocuments(rows)
}

// TextSearch ranks documents by full-text relevance over title,
// content, and tags. The lexical fallback path of retrieval.
func (c *DatabaseClient) TextSearch(ctx context.Context, query string, limit int) ([]models.ScoredDocument, error) {
	if limit <= 0 {
		limit = 3
	}
	const q = `
		SELECT ` + documentCols + `,
		       ts_rank(to_tsvector('english', title || ' ' || content || ' ' || coalesce(tags::text, '')), qry) AS score
		FROM documents, websearch_to_tsquery('english', $1) qry
		WHERE visible
		  AND to_tsvector('english', title || ' ' || content || ' ' || coalesce(tags::text, '')) @@ qry
		ORDER BY score DESC
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScoredDocuments(rows)
}

func scanScoredDocuments(rows *sql.Rows) ([]models.ScoredDocument, error) {
	var out []models.ScoredDocument
	for rows.Next() {
		var (
			d        models.Document
			tags     []byte
			meta     []byte
			parent   sql.NullString
			chunkIdx sql.NullInt64
			chunkCnt sql.NullInt64
			score    float64
		)
		if err := rows.Scan(
			&d.ID, &d.Title, &d.Content, &d.Category, &d.UploadedBy, &d.Visible,
			&tags, &d.ViewCount, &meta, &d.SourceFileKey, &d.IsChunk, &parent,
			&chunkIdx, &chunkCnt, &d.CreatedAt, &d.UpdatedAt, &score,
		); err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &d.Tags); err != nil {
				return nil, fmt.Errorf("unmarshal tags: %w", err)
			}
		}
		if len(meta) > 0 {
			d.Metadata = &models.DocumentMetadata{}
			if err := json.Unmarshal(meta, d.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		d.ParentDocumentID = parent.String
		d.ChunkIndex = int(chunkIdx.Int64)
		d.ChunkCount = int(chunkCnt.Int64)
		out = append(out, models.ScoredDocument{Document: d, Score: score})
	}
	return out, rows.Err()
}

// Chat sessions

const sessionCols = `id, user_id, session_id, messages, language, mode, active, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*models.ChatSession, error) {
	var (
		s    models.ChatSession
		msgs []byte
	)
	err := row.Scan(&s.ID, &s.UserID, &s.SessionID, &msgs, &s.Language, &s.Mode,
		&s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 {
		if err := json.Unmarshal(msgs, &s.Messages); err != nil {
			return nil, fmt.Errorf("unmarshal messages: %w", err)
		}
	}
	return &s, nil
}

func (c *DatabaseClient) FindOrCreateSession(ctx context.Context, userID, sessionID, language, mode string) (*models.ChatSession, error) {
	const find = `
		SELECT ` + sessionCols + `
		FROM chat_sessions
		WHERE user_id = $1 AND session_id = $2 AND active
	`
	s, err := scanSession(c.db.QueryRowContext(ctx, find, userID, sessionID))
	if err == nil {
		return s, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	const create = `
		INSERT INTO chat_sessions (id, user_id, session_id, messages, language, mode, active, created_at, updated_at)
		VALUES ($1, $2, $3, '[]', $4, $5, TRUE, now(), now())
		RETURNING ` + sessionCols
	return scanSession(c.db.QueryRowContext(ctx, create, newID(), userID, sessionID, language, mode))
}

// AppendMessages appends msgs to the active session's message array.
// Postgres serializes concurrent appends on the row, which is the only
// ordering guarantee offered across requests.
func (c *DatabaseClient) AppendMessages(ctx context.Context, userID, sessionID string, msgs []models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	const q = `
		UPDATE chat_sessions
		SET messages = messages || $3::jsonb, updated_at = now()
		WHERE user_id = $1 AND session_id = $2 AND active
	`
	res, err := c.db.ExecContext(ctx, q, userID, sessionID, b)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, apperr.ErrNotFound)
	}
	return nil
}

func (c *DatabaseClient) GetSession(ctx context.Context, userID, sessionID string) (*models.ChatSession, error) {
	const q = `
		SELECT ` + sessionCols + `
		FROM chat_sessions
		WHERE user_id = $1 AND session_id = $2 AND active
	`
	s, err := scanSession(c.db.QueryRowContext(ctx, q, userID, sessionID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", sessionID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (c *DatabaseClient) ListSessions(ctx context.Context, userID string, limit, offset int) ([]models.ChatSession, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
		SELECT ` + sessionCols + `
		FROM chat_sessions
		WHERE user_id = $1 AND active
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := c.db.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// DeactivateSession soft-deletes: the row and its messages stay, the
// session just stops showing up in reads. No resurrection path.
func (c *DatabaseClient) DeactivateSession(ctx context.Context, userID, sessionID string) error {
	const q = `
		UPDATE chat_sessions SET active = FALSE, updated_at = now()
		WHERE user_id = $1 AND session_id = $2 AND active
	`
	res, err := c.db.ExecContext(ctx, q, userID, sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, apperr.ErrNotFound)
	}
	return nil
}
