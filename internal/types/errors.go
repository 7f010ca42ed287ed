package types

import "fmt"

// Error taxonomy. Ingestion-time errors (ParseError, EmbeddingError,
// StoreUnavailable) decide whether a run continues, retries or aborts;
// query-time errors (StoreUnavailable, ModelError) are translated into
// user-visible chat messages and never crash a session.

// ConfigError reports a missing or invalid configuration value. It is
// raised during startup validation, before any network call.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ParseError marks one source file as unreadable or unparseable. The
// ingestion run skips the file and continues. Retryable is set when the
// failure came from the remote parsing delegate's transport rather than
// the file itself.
type ParseError struct {
	Source    string
	Retryable bool
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmbeddingError reports a failed embedding batch after retries, or a
// dimension mismatch in the model's output. Fatal to the ingestion run.
type EmbeddingError struct {
	Batch int
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding batch %d: %v", e.Batch, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// StoreUnavailable reports an unreachable vector database. Fatal at
// ingestion time; surfaced as an apology message at query time.
type StoreUnavailable struct {
	Backend string
	Err     error
}

func (e *StoreUnavailable) Error() string {
	return fmt.Sprintf("vector store (%s) unavailable: %v", e.Backend, e.Err)
}

func (e *StoreUnavailable) Unwrap() error { return e.Err }

// ModelError reports a failed completion or condense call. The turn is
// aborted with a generic failure message; the session stays usable.
type ModelError struct {
	Op  string
	Err error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Op, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }
