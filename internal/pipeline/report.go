package pipeline

import (
	"errors"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Report summarizes a run: what was read, what was dropped, and why.
// Marshaled as JSON at the end of a batch so operators can audit a run
// without re-reading the logs.
type Report struct {
	TargetYear int       `json:"target_year"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Observations    int               `json:"observations"`
	Traps           int               `json:"traps"`
	JoinedTraps     int               `json:"joined_traps"`
	DroppedTraps    []int             `json:"dropped_traps,omitempty"`
	HistoryRows     int               `json:"history_rows,omitempty"`
	Stations        []string          `json:"stations"`
	FailedStations  map[string]string `json:"failed_stations,omitempty"`
	SkippedStations []string          `json:"skipped_stations,omitempty"`
	Summaries       int               `json:"summaries"`
	MergedRows      int               `json:"merged_rows"`
	ParseIssues     []string          `json:"parse_issues,omitempty"`
}

// addIssues flattens a (possibly multi-) error into the issue list.
func (r *Report) addIssues(err error) {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			r.ParseIssues = append(r.ParseIssues, e.Error())
		}
		return
	}
	r.ParseIssues = append(r.ParseIssues, err.Error())
}
