package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wallet-flow-tracker/internal/types"
)

// Warning is one itemized data-quality finding of a run.
type Warning struct {
	Category types.WarningCategory `json:"category"`
	Message  string                `json:"message"`
}

// RunReport collects the warnings of one batch run. A run completes with a
// report instead of halting on its first bad row.
type RunReport struct {
	RunID      uuid.UUID `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Counts   map[types.WarningCategory]int `json:"counts"`
	Warnings []Warning                     `json:"warnings"`

	mu sync.Mutex
}

// NewRunReport starts a report for a fresh run.
func NewRunReport() *RunReport {
	return &RunReport{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
		Counts:    make(map[types.WarningCategory]int),
	}
}

// Add records one warning.
func (r *RunReport) Add(category types.WarningCategory, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Counts[category]++
	r.Warnings = append(r.Warnings, Warning{Category: category, Message: message})
}

// Count returns the number of warnings in a category.
func (r *RunReport) Count(category types.WarningCategory) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Counts[category]
}

// Total returns the number of warnings across all categories.
func (r *RunReport) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Warnings)
}

// Finish stamps the completion time and returns the report for chaining.
func (r *RunReport) Finish() *RunReport {
	r.FinishedAt = time.Now().UTC()
	return r
}
