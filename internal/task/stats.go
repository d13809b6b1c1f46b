package task

import (
	"taskdeck/internal/model"
)

// Stats is a point-in-time summary of the collection, always computed
// fresh from current state and never cached.
type Stats struct {
	Total          int                    `json:"total"`
	Completed      int                    `json:"completed"`
	Incomplete     int                    `json:"incomplete"`
	Overdue        int                    `json:"overdue"`
	ByPriority     map[model.Priority]int `json:"byPriority"`
	CompletionRate float64                `json:"completionRate"`
}

func (r *Repository) Stats() Stats {
	r.mu.Lock()
	tasks := r.listLocked()
	r.mu.Unlock()

	stats := Stats{
		ByPriority: map[model.Priority]int{
			model.PriorityHigh:   0,
			model.PriorityMedium: 0,
			model.PriorityLow:    0,
		},
	}
	for _, t := range tasks {
		stats.Total++
		if t.Completed() {
			stats.Completed++
		}
		if t.IsOverdue() {
			stats.Overdue++
		}
		stats.ByPriority[t.Priority()]++
	}
	stats.Incomplete = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total)
	}
	return stats
}
