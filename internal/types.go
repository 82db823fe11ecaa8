package internal

import "time"

// GradingRun is one invocation of the grade command over an input folder.
type GradingRun struct {
	ID         string    `json:"id"`
	InputDir   string    `json:"input_dir"`
	OutputDir  string    `json:"output_dir"`
	Backends   string    `json:"backends"`
	RubricHash string    `json:"rubric_hash"`
	Total      int       `json:"total"`
	Graded     int       `json:"graded"`
	Cached     int       `json:"cached"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Finished reports whether the run reached its completion banner.
func (r GradingRun) Finished() bool {
	return !r.FinishedAt.IsZero()
}
