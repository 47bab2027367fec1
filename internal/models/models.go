package models

import (
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	Role         string    `db:"role" json:"role"` // "student" or "admin"
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Category is the closed set of knowledge-document categories.
type Category string

const (
	CategoryRegistrar  Category = "registrar"
	CategoryAcademic   Category = "academic"
	CategoryDepartment Category = "department"
	CategoryFees       Category = "fees"
	CategoryDeadline   Category = "deadline"
	CategoryLab        Category = "lab"
	CategoryInternship Category = "internship"
	CategoryService    Category = "service"
	CategoryPolicy     Category = "policy"
	CategoryOther      Category = "other"
)

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryRegistrar, CategoryAcademic, CategoryDepartment, CategoryFees,
		CategoryDeadline, CategoryLab, CategoryInternship, CategoryService,
		CategoryPolicy, CategoryOther:
		return true
	}
	return false
}

// ContactInfo holds office contact details attached to a document.
type ContactInfo struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// DocumentMetadata is the optional structured payload of a document.
// Absent fields are simply omitted from prompts.
type DocumentMetadata struct {
	OfficeLocation    string       `json:"office_location,omitempty"`
	RequiredDocuments []string     `json:"required_documents,omitempty"`
	ProcessSteps      []string     `json:"process_steps,omitempty"`
	DeadlineDate      *time.Time   `json:"deadline_date,omitempty"`
	Contact           *ContactInfo `json:"contact,omitempty"`
}

// Empty reports whether the metadata carries no usable field.
func (m *DocumentMetadata) Empty() bool {
	if m == nil {
		return true
	}
	return m.OfficeLocation == "" && len(m.RequiredDocuments) == 0 &&
		len(m.ProcessSteps) == 0 && m.DeadlineDate == nil && m.Contact == nil
}

// Document is one unit of knowledge: a standalone document, a parent
// whose content was split into chunks, or one such chunk. Parents carry
// no embedding of their own; chunks reference their parent via
// ParentDocumentID and carry ChunkIndex/ChunkCount.
type Document struct {
	ID         string            `db:"id" json:"id"`
	Title      string            `db:"title" json:"title"`
	Content    string            `db:"content" json:"content"`
	Category   Category          `db:"category" json:"category"`
	Embedding  []float32         `db:"embedding" json:"-"` // pgvector column, nil for parents
	UploadedBy string            `db:"uploaded_by" json:"uploaded_by"`
	Visible    bool              `db:"visible" json:"visible"`
	Tags       []string          `db:"tags" json:"tags"`
	ViewCount  int               `db:"view_count" json:"view_count"`
	Metadata   *DocumentMetadata `db:"metadata" json:"metadata,omitempty"`

	// SourceFileKey is the object-storage key of the archived original
	// upload, empty when the document came in as plain text or archival
	// was not configured.
	SourceFileKey string `db:"source_file_key" json:"source_file_key,omitempty"`

	IsChunk          bool   `db:"is_chunk" json:"is_chunk"`
	ParentDocumentID string `db:"parent_document_id" json:"parent_document_id,omitempty"`
	ChunkIndex       int    `db:"chunk_index" json:"chunk_index,omitempty"`
	ChunkCount       int    `db:"chunk_count" json:"chunk_count,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ScoredDocument is a document annotated with a retrieval relevance
// score. Higher is better. The scale depends on which search path
// produced it (store engine score vs raw cosine), so scores from
// different paths must not be compared against each other.
type ScoredDocument struct {
	Document
	Score float64 `json:"score"`
}

// MessageSource is a citation attached to an assistant message.
type MessageSource struct {
	DocumentID string   `json:"document_id"`
	Title      string   `json:"title"`
	Category   Category `json:"category"`
}

// ChatMessage is one message in a session. Only assistant messages
// carry sources.
type ChatMessage struct {
	Role      string          `json:"role"` // "user" or "assistant"
	Content   string          `json:"content"`
	Sources   []MessageSource `json:"sources,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ChatSession groups the messages of one conversation. Deleting a
// session flips Active to false; inactive sessions are filtered out of
// reads but never physically removed.
type ChatSession struct {
	ID        string        `db:"id" json:"id"`
	UserID    string        `db:"user_id" json:"user_id"`
	SessionID string        `db:"session_id" json:"session_id"`
	Messages  []ChatMessage `db:"messages" json:"messages"`
	Language  string        `db:"language" json:"language"`
	Mode      string        `db:"mode" json:"mode"`
	Active    bool          `db:"active" json:"active"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}
