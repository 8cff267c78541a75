// Package history records finished batches so past runs can be listed.
//
// A Report is built from an update.BatchResult and saved to a Store. Two
// stores exist: FileStore keeps one JSON file per run under the user's
// config directory, MongoStore keeps runs in a MongoDB collection shared by
// several machines.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/refbump/pkg/errors"
	"github.com/matzehuels/refbump/pkg/update"
)

// DefaultLimit is the number of reports List returns when limit is not
// positive.
const DefaultLimit = 20

// Store persists reports.
type Store interface {
	// Save records r.
	Save(ctx context.Context, r *Report) error
	// List returns up to limit reports, newest first.
	List(ctx context.Context, limit int) ([]*Report, error)
	Close() error
}

// Report is the record of one batch.
type Report struct {
	ID         string          `json:"id" bson:"_id"`
	StartedAt  time.Time       `json:"started_at" bson:"started_at"`
	Duration   time.Duration   `json:"duration" bson:"duration"`
	Mode       update.Mode     `json:"mode" bson:"mode"`
	Repository string          `json:"repository" bson:"repository"`
	Branch     string          `json:"branch,omitempty" bson:"branch,omitempty"`
	PullID     string          `json:"pull_request,omitempty" bson:"pull_request,omitempty"`
	Projects   []ProjectReport `json:"projects" bson:"projects"`
}

// ProjectReport is the outcome of one project within a Report.
type ProjectReport struct {
	Path    string          `json:"path" bson:"path"`
	Outcome string          `json:"outcome" bson:"outcome"`
	Reason  string          `json:"reason,omitempty" bson:"reason,omitempty"`
	Error   string          `json:"error,omitempty" bson:"error,omitempty"`
	Code    string          `json:"code,omitempty" bson:"code,omitempty"`
	Actions []update.Action `json:"actions,omitempty" bson:"actions,omitempty"`
}

// NewReport builds a report for b, which ran against repository and
// started at startedAt.
func NewReport(repository string, startedAt time.Time, b *update.BatchResult) *Report {
	r := &Report{
		ID:         uuid.NewString(),
		StartedAt:  startedAt.UTC(),
		Duration:   time.Since(startedAt),
		Mode:       b.Mode,
		Repository: repository,
	}
	for _, p := range b.Projects {
		pr := ProjectReport{Path: p.Path}
		switch {
		case p.Err != nil:
			pr.Outcome = "failed"
			pr.Error = p.Err.Error()
			pr.Code = string(errors.GetCode(p.Err))
		case p.Result != nil:
			pr.Outcome = p.Result.Outcome.String()
			pr.Reason = p.Result.Reason
			pr.Actions = p.Result.Actions
		}
		r.Projects = append(r.Projects, pr)
	}
	return r
}

// Counts returns the number of updated and failed projects and the total
// action count.
func (r *Report) Counts() (updated, failed, actions int) {
	for _, p := range r.Projects {
		switch p.Outcome {
		case "failed":
			failed++
		case update.Updated.String():
			updated++
		}
		actions += len(p.Actions)
	}
	return updated, failed, actions
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
