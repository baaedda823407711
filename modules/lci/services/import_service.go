package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/weloop/lci-importer/modules/lci/domain/aggregates/activity"
	"github.com/weloop/lci-importer/modules/lci/domain/entities/record"
	"github.com/weloop/lci-importer/pkg/composables"
	"github.com/weloop/lci-importer/pkg/eventbus"
)

// inTxFn is swappable in tests.
var inTxFn = composables.InTx

// WorkbookReader abstracts workbook parsing so the pipeline is testable without
// files on disk.
type WorkbookReader interface {
	ReadFile(path string) ([]record.Process, error)
}

// ImportService runs the two-phase pipeline: resolve everything, then write.
// A run with any unresolved, ambiguous or invariant issue performs zero writes.
type ImportService struct {
	logger     *logrus.Logger
	publisher  eventbus.EventBus
	reader     WorkbookReader
	resolver   *ResolverService
	graph      *GraphService
	activities activity.Repository
}

func NewImportService(
	logger *logrus.Logger,
	publisher eventbus.EventBus,
	reader WorkbookReader,
	resolver *ResolverService,
	graph *GraphService,
	activities activity.Repository,
) *ImportService {
	return &ImportService{
		logger:     logger,
		publisher:  publisher,
		reader:     reader,
		resolver:   resolver,
		graph:      graph,
		activities: activities,
	}
}

type RunOptions struct {
	Files []string
	Apply bool
}

type ActivityOutcome struct {
	Identity activity.Identity `json:"identity"`
	Name     string            `json:"name"`
	Created  bool              `json:"created"`
}

type RunResult struct {
	RunID      uuid.UUID `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Files      []string  `json:"files"`
	Applied    bool      `json:"applied"`

	Issues     []Issue           `json:"issues,omitempty"`
	Activities []ActivityOutcome `json:"activities,omitempty"`

	// Pending lists activities not yet written when a persistence failure
	// aborted the write phase; Activities then holds the committed part.
	Pending []activity.Identity `json:"pending,omitempty"`
}

func (r *RunResult) HasIssues() bool {
	return len(r.Issues) > 0
}

func (r *RunResult) Counts() (created, updated int) {
	for _, a := range r.Activities {
		if a.Created {
			created++
		} else {
			updated++
		}
	}
	return created, updated
}

// Run executes the pipeline over opts.Files in order. Parsing failures are
// fatal per file and abort immediately; resolution and build issues are
// batched into the result. The returned error is reserved for malformed input
// and infrastructure failures.
func (s *ImportService) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
		Files:     opts.Files,
	}

	var items []ResolvedProcess
	var issues []Issue
	for _, path := range opts.Files {
		processes, err := s.reader.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		s.logger.WithFields(logrus.Fields{
			"file":      filepath.Base(path),
			"processes": len(processes),
		}).Info("parsed workbook")

		for i := range processes {
			resolved, rowIssues, err := s.resolver.ResolveProcess(ctx, &processes[i])
			if err != nil {
				return nil, err
			}
			issues = append(issues, rowIssues...)
			items = append(items, ResolvedProcess{Process: processes[i], Exchanges: resolved})
		}
	}

	graph, buildIssues := s.graph.Build(items)
	issues = append(issues, buildIssues...)

	if len(issues) > 0 {
		for _, issue := range issues {
			s.logger.WithField("kind", string(issue.Kind)).Error(issue.String())
		}
		result.Issues = issues
		result.FinishedAt = time.Now().UTC()
		return result, nil
	}

	if !opts.Apply {
		for _, a := range graph.Activities() {
			exists, err := s.activities.Exists(ctx, a.Identity)
			if err != nil {
				return nil, err
			}
			result.Activities = append(result.Activities, ActivityOutcome{
				Identity: a.Identity,
				Name:     a.Name,
				Created:  !exists,
			})
		}
		result.FinishedAt = time.Now().UTC()
		return result, nil
	}

	result.Applied = true
	activities := graph.Activities()
	for i, a := range activities {
		var created bool
		err := inTxFn(ctx, func(txCtx context.Context) error {
			c, err := s.activities.CreateOrUpdate(txCtx, a)
			created = c
			return err
		})
		if err != nil {
			// the write phase is not transactional across activities: report
			// what was committed and what is still pending
			for _, rest := range activities[i:] {
				result.Pending = append(result.Pending, rest.Identity)
			}
			result.FinishedAt = time.Now().UTC()
			return result, fmt.Errorf("persist activity %q: %w", a.Name, err)
		}

		result.Activities = append(result.Activities, ActivityOutcome{
			Identity: a.Identity,
			Name:     a.Name,
			Created:  created,
		})
		if created {
			s.publisher.Publish("activity.created", a)
		} else {
			s.publisher.Publish("activity.updated", a)
		}
	}

	created, updated := result.Counts()
	s.logger.WithFields(logrus.Fields{
		"created": created,
		"updated": updated,
	}).Info("import run complete")

	result.FinishedAt = time.Now().UTC()
	return result, nil
}
