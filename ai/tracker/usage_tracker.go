package tracker

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/teranos/distill/errors"
)

// ModelUsage represents a record of LLM usage for one API call
type ModelUsage struct {
	ID                int        `json:"id" db:"id"`
	OperationType     string     `json:"operation_type" db:"operation_type"`
	EntityType        string     `json:"entity_type" db:"entity_type"`
	EntityID          string     `json:"entity_id" db:"entity_id"`
	ModelName         string     `json:"model_name" db:"model_name"`
	ModelProvider     string     `json:"model_provider" db:"model_provider"`
	ModelConfig       *string    `json:"model_config,omitempty" db:"model_config"`
	RequestTimestamp  time.Time  `json:"request_timestamp" db:"request_timestamp"`
	ResponseTimestamp *time.Time `json:"response_timestamp,omitempty" db:"response_timestamp"`
	TokensUsed        *int       `json:"tokens_used,omitempty" db:"tokens_used"`
	Cost              *float64   `json:"cost,omitempty" db:"cost"`
	Success           bool       `json:"success" db:"success"`
	ErrorMessage      *string    `json:"error_message,omitempty" db:"error_message"`
	Metadata          *string    `json:"metadata,omitempty" db:"metadata"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// ModelConfig represents the sampling configuration used for a request
type ModelConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	JSONMode    bool     `json:"json_mode,omitempty"`
}

// UsageMetadata represents additional context for a request
type UsageMetadata struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	InputLength      int `json:"input_length,omitempty"`
	OutputLength     int `json:"output_length,omitempty"`
}

// UsageTracker records LLM usage into the ai_model_usage table
type UsageTracker struct {
	db *sql.DB
}

// NewUsageTracker creates a new usage tracker
func NewUsageTracker(db *sql.DB) *UsageTracker {
	return &UsageTracker{db: db}
}

// TrackUsage records LLM usage in the database
func (t *UsageTracker) TrackUsage(usage *ModelUsage) error {
	query := `
		INSERT INTO ai_model_usage (
			operation_type, entity_type, entity_id, model_name, model_provider,
			model_config, request_timestamp, response_timestamp, tokens_used,
			cost, success, error_message, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := t.db.Exec(query,
		usage.OperationType, usage.EntityType, usage.EntityID,
		usage.ModelName, usage.ModelProvider, usage.ModelConfig,
		usage.RequestTimestamp, usage.ResponseTimestamp, usage.TokensUsed,
		usage.Cost, usage.Success, usage.ErrorMessage, usage.Metadata,
	)

	return errors.Wrap(err, "failed to insert usage record")
}

// Request describes one completed (or failed) provider call.
// Provider clients fill it in and hand it to RecordRequest.
type Request struct {
	Operation        Operation
	Provider         string
	Model            string
	Config           ModelConfig
	Started          time.Time
	Finished         time.Time
	PromptTokens     int
	CompletionTokens int
	InputLength      int
	OutputLength     int
	Cost             float64
	Err              error
}

// RecordRequest converts a Request into a ModelUsage row and stores it.
// Failed requests are stored without tokens or cost.
func (t *UsageTracker) RecordRequest(r Request) error {
	op := r.Operation.withDefaults()
	finished := r.Finished
	usage := &ModelUsage{
		OperationType:     op.Type,
		EntityType:        op.EntityType,
		EntityID:          op.EntityID,
		ModelName:         r.Model,
		ModelProvider:     r.Provider,
		ModelConfig:       marshalString(r.Config),
		RequestTimestamp:  r.Started,
		ResponseTimestamp: &finished,
		Success:           r.Err == nil,
	}

	if r.Err != nil {
		msg := r.Err.Error()
		usage.ErrorMessage = &msg
	} else {
		tokens := r.PromptTokens + r.CompletionTokens
		cost := r.Cost
		usage.TokensUsed = &tokens
		usage.Cost = &cost
		usage.Metadata = marshalString(UsageMetadata{
			PromptTokens:     r.PromptTokens,
			CompletionTokens: r.CompletionTokens,
			InputLength:      r.InputLength,
			OutputLength:     r.OutputLength,
		})
	}

	return t.TrackUsage(usage)
}

// GetUsageStats returns usage statistics for a given time period
func (t *UsageTracker) GetUsageStats(since time.Time) (*UsageStats, error) {
	query := `
		SELECT
			COUNT(*) as total_requests,
			COUNT(CASE WHEN success = 1 THEN 1 END) as successful_requests,
			COALESCE(SUM(COALESCE(tokens_used, 0)), 0) as total_tokens,
			COALESCE(SUM(COALESCE(cost, 0)), 0) as total_cost,
			COUNT(DISTINCT CASE WHEN model_name IS NOT NULL THEN model_name END) as unique_models
		FROM ai_model_usage
		WHERE request_timestamp >= ?`

	var stats UsageStats
	err := t.db.QueryRow(query, since).Scan(
		&stats.TotalRequests, &stats.SuccessfulRequests,
		&stats.TotalTokens, &stats.TotalCost, &stats.UniqueModels,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query usage stats")
	}

	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.SuccessfulRequests) / float64(stats.TotalRequests)
	}

	return &stats, nil
}

// GetModelBreakdown returns usage breakdown by model
func (t *UsageTracker) GetModelBreakdown(since time.Time) ([]ModelBreakdown, error) {
	query := `
		SELECT
			model_name,
			model_provider,
			COUNT(*) as request_count,
			SUM(COALESCE(tokens_used, 0)) as total_tokens,
			SUM(COALESCE(cost, 0)) as total_cost,
			AVG(CASE WHEN response_timestamp IS NOT NULL THEN
				(julianday(response_timestamp) - julianday(request_timestamp)) * 86400000
				ELSE NULL END) as avg_response_time_ms
		FROM ai_model_usage
		WHERE request_timestamp >= ? AND success = 1
		GROUP BY model_name, model_provider
		ORDER BY total_cost DESC`

	rows, err := t.db.Query(query, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query model breakdown")
	}
	defer rows.Close()

	var breakdown []ModelBreakdown
	for rows.Next() {
		var mb ModelBreakdown
		err := rows.Scan(&mb.ModelName, &mb.ModelProvider, &mb.RequestCount,
			&mb.TotalTokens, &mb.TotalCost, &mb.AvgResponseTimeMs)
		if err != nil {
			continue
		}
		breakdown = append(breakdown, mb)
	}

	return breakdown, rows.Err()
}

// GetOperationBreakdown returns request counts and cost per pipeline stage
func (t *UsageTracker) GetOperationBreakdown(since time.Time) ([]OperationBreakdown, error) {
	query := `
		SELECT
			operation_type,
			COUNT(*) as request_count,
			COUNT(CASE WHEN success = 0 THEN 1 END) as failed_count,
			COALESCE(SUM(COALESCE(tokens_used, 0)), 0) as total_tokens,
			COALESCE(SUM(COALESCE(cost, 0)), 0) as total_cost
		FROM ai_model_usage
		WHERE request_timestamp >= ?
		GROUP BY operation_type
		ORDER BY request_count DESC`

	rows, err := t.db.Query(query, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query operation breakdown")
	}
	defer rows.Close()

	var breakdown []OperationBreakdown
	for rows.Next() {
		var ob OperationBreakdown
		if err := rows.Scan(&ob.OperationType, &ob.RequestCount, &ob.FailedCount, &ob.TotalTokens, &ob.TotalCost); err != nil {
			continue
		}
		breakdown = append(breakdown, ob)
	}

	return breakdown, rows.Err()
}

// UsageStats represents aggregated usage statistics
type UsageStats struct {
	TotalRequests      int     `json:"total_requests"`
	SuccessfulRequests int     `json:"successful_requests"`
	SuccessRate        float64 `json:"success_rate"`
	TotalTokens        int     `json:"total_tokens"`
	TotalCost          float64 `json:"total_cost"`
	UniqueModels       int     `json:"unique_models"`
}

// ModelBreakdown represents usage statistics for a specific model
type ModelBreakdown struct {
	ModelName         string   `json:"model_name"`
	ModelProvider     string   `json:"model_provider"`
	RequestCount      int      `json:"request_count"`
	TotalTokens       int      `json:"total_tokens"`
	TotalCost         float64  `json:"total_cost"`
	AvgResponseTimeMs *float64 `json:"avg_response_time_ms,omitempty"`
}

// OperationBreakdown represents usage statistics for one pipeline stage
type OperationBreakdown struct {
	OperationType string  `json:"operation_type"`
	RequestCount  int     `json:"request_count"`
	FailedCount   int     `json:"failed_count"`
	TotalTokens   int     `json:"total_tokens"`
	TotalCost     float64 `json:"total_cost"`
}

// marshalString serializes v to a JSON string pointer, nil on failure
func marshalString(v interface{}) *string {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}
