package vector

import "errors"

var (
	// ErrNotFound is returned when a chunk is not found in the vector store.
	ErrNotFound = errors.New("chunk not found")

	// ErrConnection is returned when the vector store cannot be reached.
	ErrConnection = errors.New("vector store connection failed")
)
