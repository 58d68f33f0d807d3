package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups for rows that do not exist.
var ErrNotFound = errors.New("not found")

// QueryOpts filters and paginates event queries.
type QueryOpts struct {
	Limit   int       // 0 = unlimited
	Purpose string    // exact match when set
	From    time.Time // created_at >= From
	To      time.Time // created_at <= To
}

// LLMRequestEventData is what the logging provider records per model call.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	QuestionID   string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored model call.
type LLMRequestEvent struct {
	ID        int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates events by purpose or by model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo records and reads model call events.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)
	// GetLLMEvent returns ErrNotFound when id does not exist.
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error)
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}

// Question is a stored question with the artefacts generated for it.
// The JSON columns hold whatever the pipeline returned, verbatim.
type Question struct {
	ID            string
	UserID        string
	QuestionText  string
	Topic         string
	AISolution    json.RawMessage
	MarkingResult json.RawMessage
	WorkAnalysis  json.RawMessage
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// QuestionRepo persists questions and their generated artefacts.
type QuestionRepo interface {
	// Create inserts q, assigning an ID when empty.
	Create(ctx context.Context, q *Question) error
	Get(ctx context.Context, id string) (*Question, error)
	SaveSolution(ctx context.Context, id string, solution json.RawMessage) error
	SaveMarkingResult(ctx context.Context, id string, result json.RawMessage) error
	SaveWorkAnalysis(ctx context.Context, id string, analysis json.RawMessage) error
}

// MarkScheme is a stored scheme for a question. Content is the
// model-generated or caller-supplied text.
type MarkScheme struct {
	QuestionID string
	Content    string
	Source     string
	CreatedAt  time.Time
}

// MarkSchemeRepo is the cache-aside backing store for mark schemes.
type MarkSchemeRepo interface {
	// Get returns ErrNotFound on a miss.
	Get(ctx context.Context, questionID string) (*MarkScheme, error)
	// Put inserts or replaces the scheme for ms.QuestionID.
	Put(ctx context.Context, ms MarkScheme) error
}
