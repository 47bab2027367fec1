// Package memstore is an in-memory DbClient for environments without a
// vector-capable database: brute-force cosine ranking over stored
// embeddings and substring matching for the lexical path. It is also
// the store the pipeline tests run against.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusassist/internal/apperr"
	"campusassist/internal/core"
	"campusassist/internal/core/vectorutil"
	"campusassist/internal/models"
)

type Store struct {
	mu        sync.RWMutex
	users     map[string]*models.User // keyed by email
	documents []*models.Document
	sessions  []*models.ChatSession
}

func New() *Store {
	return &Store{users: make(map[string]*models.User)}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return fmt.Errorf("email %s taken", user.Email)
	}
	u := *user
	s.users[user.Email] = &u
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateDocument(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *doc
	s.documents = append(s.documents, &d)
	return nil
}

func (s *Store) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.documents {
		if d.ID == id {
			d.ViewCount++
			cp := *d
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
}

func (s *Store) ListDocuments(_ context.Context, limit, offset int) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	var out []models.Document
	skipped := 0
	for i := len(s.documents) - 1; i >= 0 && len(out) < limit; i-- {
		d := s.documents[i]
		if d.IsChunk || !d.Visible {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

// AllDocuments returns a snapshot of every stored document, chunks
// included, in insertion order.
func (s *Store) AllDocuments() []models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Document, 0, len(s.documents))
	for _, d := range s.documents {
		out = append(out, *d)
	}
	return out
}

func (s *Store) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	kept := s.documents[:0]
	for _, d := range s.documents {
		if d.ID == id {
			found = true
			continue
		}
		if d.ParentDocumentID == id {
			continue // cascade
		}
		kept = append(kept, d)
	}
	s.documents = kept
	if !found {
		return fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// VectorSearch brute-force ranks every embedded document, so the
// candidate pool is the full corpus; candidates only caps the result
// when it is tighter than limit.
func (s *Store) VectorSearch(_ context.Context, queryVec []float32, candidates, limit int) ([]models.ScoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 3
	}
	if candidates > 0 && candidates < limit {
		limit = candidates
	}
	pool := make([]models.Document, 0, len(s.documents))
	for _, d := range s.documents {
		if !d.Visible || len(d.Embedding) == 0 {
			continue
		}
		pool = append(pool, *d)
	}
	return vectorutil.TopK(queryVec, pool, limit)
}

func (s *Store) TextSearch(_ context.Context, query string, limit int) ([]models.ScoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 3
	}
	terms := strings.Fields(strings.ToLower(query))
	var out []models.ScoredDocument
	for _, d := range s.documents {
		if !d.Visible {
			continue
		}
		haystack := strings.ToLower(d.Title + " " + d.Content + " " + strings.Join(d.Tags, " "))
		hits := 0
		for _, t := range terms {
			if strings.Contains(haystack, t) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		out = append(out, models.ScoredDocument{
			Document: *d,
			Score:    float64(hits) / float64(len(terms)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) FindOrCreateSession(_ context.Context, userID, sessionID, language, mode string) (*models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.findActive(userID, sessionID); sess != nil {
		cp := *sess
		return &cp, nil
	}
	now := time.Now()
	sess := &models.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Language:  language,
		Mode:      mode,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions = append(s.sessions, sess)
	cp := *sess
	return &cp, nil
}

func (s *Store) AppendMessages(_ context.Context, userID, sessionID string, msgs []models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.findActive(userID, sessionID)
	if sess == nil {
		return fmt.Errorf("session %s: %w", sessionID, apperr.ErrNotFound)
	}
	sess.Messages = append(sess.Messages, msgs...)
	sess.UpdatedAt = time.Now()
	return nil
}

func (s *Store) GetSession(_ context.Context, userID, sessionID string) (*models.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := s.findActive(userID, sessionID)
	if sess == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, apperr.ErrNotFound)
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) ListSessions(_ context.Context, userID string, limit, offset int) ([]models.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	var active []*models.ChatSession
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Active {
			active = append(active, sess)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].UpdatedAt.After(active[j].UpdatedAt)
	})
	var out []models.ChatSession
	for i := offset; i < len(active) && len(out) < limit; i++ {
		out = append(out, *active[i])
	}
	return out, nil
}

func (s *Store) DeactivateSession(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.findActive(userID, sessionID)
	if sess == nil {
		return fmt.Errorf("session %s: %w", sessionID, apperr.ErrNotFound)
	}
	sess.Active = false
	sess.UpdatedAt = time.Now()
	return nil
}

func (s *Store) findActive(userID, sessionID string) *models.ChatSession {
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.SessionID == sessionID && sess.Active {
			return sess
		}
	}
	return nil
}

var _ core.DbClient = (*Store)(nil)
