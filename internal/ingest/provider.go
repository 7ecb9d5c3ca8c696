// Package ingest holds types shared by workout history importers.
package ingest

// Result summarizes one import run.
type Result struct {
	SessionsImported int    `json:"sessions_imported"`
	SetsImported     int    `json:"sets_imported"`
	ExercisesCreated int    `json:"exercises_created"`
	TemplatesCreated int    `json:"templates_created"`
	Skipped          int    `json:"skipped"`
	Message          string `json:"message,omitempty"`
}
