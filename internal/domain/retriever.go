package domain

import "context"

// RetrievedDoc is a single document returned by a retriever.
type RetrievedDoc struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Retriever is a knowledge source an agent may query during task
// execution. Implementations are external collaborators (vector stores,
// data APIs); the core only consumes this interface.
type Retriever interface {
	Query(ctx context.Context, query string, limit int) ([]RetrievedDoc, error)
	Name() string
	IsAvailable() bool
}
