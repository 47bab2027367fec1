package core

import (
	"context"
	"io"

	"campusassist/internal/models"
)

// DbClient defines all persistence operations the pipelines need.
// It abstracts Postgres/pgvector so higher layers never depend on a
// specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	// GetDocumentByID returns the document and bumps its view count.
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	// ListDocuments returns visible, non-chunk documents only.
	ListDocuments(ctx context.Context, limit, offset int) ([]models.Document, error)
	// DeleteDocument removes a document and cascades to any chunks
	// referencing it as parent.
	DeleteDocument(ctx context.Context, id string) error

	// VectorSearch returns up to limit documents nearest to queryVec,
	// drawn from a candidate pool of at most candidates rows, each
	// annotated with a relevance score in [0,1] (higher is better).
	VectorSearch(ctx context.Context, queryVec []float32, candidates, limit int) ([]models.ScoredDocument, error)
	// TextSearch ranks documents lexically over title/content/tags.
	TextSearch(ctx context.Context, query string, limit int) ([]models.ScoredDocument, error)

	// FindOrCreateSession returns the active session for
	// (userID, sessionID), creating it if absent.
	FindOrCreateSession(ctx context.Context, userID, sessionID, language, mode string) (*models.ChatSession, error)
	AppendMessages(ctx context.Context, userID, sessionID string, msgs []models.ChatMessage) error
	GetSession(ctx context.Context, userID, sessionID string) (*models.ChatSession, error)
	// ListSessions returns the user's active sessions, newest first.
	ListSessions(ctx context.Context, userID string, limit, offset int) ([]models.ChatSession, error)
	// DeactivateSession soft-deletes: flips active=false, keeps data.
	DeactivateSession(ctx context.Context, userID, sessionID string) error

	Close() error
}

// EmbeddingProvider turns text into a fixed-length vector.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LLMProvider generates text from a prompt.
type LLMProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TextExtractor pulls plain text out of an uploaded file. Parsing
// details (PDF, docx, OCR) live entirely behind this boundary.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (string, error)
}

// ObjectClient defines interactions with S3 or any object storage:
// archive an original upload, stream it back, drop it when its
// document goes away.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
