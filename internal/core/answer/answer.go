package answer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"campusassist/internal/apperr"
	"campusassist/internal/core"
	"campusassist/internal/core/promptbuilder"
	"campusassist/internal/core/retrieval"
	"campusassist/internal/models"
)

// maxQuestionLen is the caller-facing bound on question length,
// enforced here even when an outer layer already validated it.
const maxQuestionLen = 1000

// Request is one question from one user.
type Request struct {
	Question  string
	Language  string
	Mode      string
	SessionID string // empty: a new session is created
	UserID    string
}

// Source is one cited document with its retrieval score and any
// structured metadata the caller may want to render.
type Source struct {
	DocumentID string                   `json:"document_id"`
	Title      string                   `json:"title"`
	Category   models.Category          `json:"category"`
	Score      float64                  `json:"score"`
	Metadata   *models.DocumentMetadata `json:"metadata,omitempty"`
}

// Response carries the synthesized answer. An empty Sources list means
// the answer was generated without grounding context; that is a
// success, not an error.
type Response struct {
	Answer    string   `json:"answer"`
	SessionID string   `json:"session_id"`
	Sources   []Source `json:"sources"`
}

// Pipeline answers questions: retrieve context, build the prompt,
// generate, log the exchange to chat history.
type Pipeline struct {
	db        core.DbClient
	retriever *retrieval.Retriever
	llm       core.LLMProvider
}

func NewPipeline(db core.DbClient, retriever *retrieval.Retriever, llm core.LLMProvider) *Pipeline {
	return &Pipeline{db: db, retriever: retriever, llm: llm}
}

// Answer runs the full question flow. Retrieval failures degrade to a
// contextless answer; a generation failure is fatal to the request;
// a history-write failure is logged and never surfaced, since the
// answer is already computed.
func (p *Pipeline) Answer(ctx context.Context, req Request) (*Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("question required: %w", apperr.ErrValidation)
	}
	if len(question) > maxQuestionLen {
		return nil, fmt.Errorf("question exceeds %d chars: %w", maxQuestionLen, apperr.ErrValidation)
	}

	language := promptbuilder.NormalizeLanguage(req.Language)
	mode := promptbuilder.NormalizeMode(req.Mode)
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("sess_%s_%d", req.UserID, time.Now().UnixMilli())
	}

	contextDocs, err := p.retriever.Retrieve(ctx, question)
	if err != nil {
		log.Printf("answer: retrieval failed, answering without context: %v", err)
		contextDocs = nil
	}

	prompt := promptbuilder.Build(question, contextDocs, language, mode)
	text, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	sources := make([]Source, 0, len(contextDocs))
	citations := make([]models.MessageSource, 0, len(contextDocs))
	for _, d := range contextDocs {
		sources = append(sources, Source{
			DocumentID: d.ID,
			Title:      d.Title,
			Category:   d.Category,
			Score:      d.Score,
			Metadata:   d.Metadata,
		})
		citations = append(citations, models.MessageSource{
			DocumentID: d.ID,
			Title:      d.Title,
			Category:   d.Category,
		})
	}

	p.logExchange(ctx, req.UserID, sessionID, language, mode, question, text, citations)

	return &Response{Answer: text, SessionID: sessionID, Sources: sources}, nil
}

func (p *Pipeline) logExchange(ctx context.Context, userID, sessionID, language, mode, question, answerText string, citations []models.MessageSource) {
	if _, err := p.db.FindOrCreateSession(ctx, userID, sessionID, language, mode); err != nil {
		log.Printf("answer: chat history session lookup failed: %v", err)
		return
	}
	now := time.Now()
	msgs := []models.ChatMessage{
		{Role: "user", Content: question, CreatedAt: now},
		{Role: "assistant", Content: answerText, Sources: citations, CreatedAt: now},
	}
	if err := p.db.AppendMessages(ctx, userID, sessionID, msgs); err != nil {
		log.Printf("answer: chat history append failed: %v", err)
	}
}
