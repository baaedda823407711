package services

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/weloop/lci-importer/modules/lci/domain/aggregates/activity"
	"github.com/weloop/lci-importer/modules/lci/domain/entities/flow"
	"github.com/weloop/lci-importer/modules/lci/domain/entities/record"
	"github.com/weloop/lci-importer/pkg/composables"
)

type stubPublisher struct {
	events []string
}

func (s *stubPublisher) Publish(args ...interface{}) {
	if len(args) > 0 {
		if name, ok := args[0].(string); ok {
			s.events = append(s.events, name)
		}
	}
}
func (s *stubPublisher) Subscribe(handler interface{})   {}
func (s *stubPublisher) Unsubscribe(handler interface{}) {}
func (s *stubPublisher) Clear()                          {}
func (s *stubPublisher) SubscribersCount() int           { return 0 }

type mockReader struct {
	processes map[string][]record.Process
	err       error
}

func (m *mockReader) ReadFile(path string) ([]record.Process, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.processes[path], nil
}

type mockActivityRepo struct {
	existing map[activity.Identity]bool
	written  []activity.Identity
	failOn   string
}

func (m *mockActivityRepo) CreateOrUpdate(ctx context.Context, a *activity.ProcessActivity) (bool, error) {
	if m.failOn != "" && a.Name == m.failOn {
		return false, errors.New("connection reset")
	}
	m.written = append(m.written, a.Identity)
	created := !m.existing[a.Identity]
	m.existing[a.Identity] = true
	return created, nil
}

func (m *mockActivityRepo) Exists(ctx context.Context, id activity.Identity) (bool, error) {
	return m.existing[id], nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func wellFormedProcess(name string) record.Process {
	return record.Process{
		Name:     name,
		Location: "FR",
		Unit:     "kg",
		Sheet:    "Sheet1",
		Exchanges: []record.RawExchangeRow{
			{Name: name, Type: record.Production, Amount: 1, Unit: "kg", Sheet: "Sheet1", Row: 5},
			{Name: "electricity, medium voltage", Type: record.Technosphere, Amount: 0.5, Unit: "kWh", Sheet: "Sheet1", Row: 6},
		},
	}
}

func newTestImportService(reader WorkbookReader, tech *mockTechnosphereRepo, repo *mockActivityRepo, bus *stubPublisher) *ImportService {
	resolver := NewResolverService(tech, &mockBiosphereRepo{}, nil, "ecoinvent 3.10 cutoff", "biosphere3")
	return NewImportService(quietLogger(), bus, reader, resolver, NewGraphService("lci_metals"), repo)
}

func noopInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func TestRun_AnyIssueMeansZeroWrites(t *testing.T) {
	t.Cleanup(func() { inTxFn = composables.InTx })
	inTxFn = noopInTx

	reader := &mockReader{processes: map[string][]record.Process{
		"a.xlsx": {wellFormedProcess("Copper production")},
	}}
	// empty technosphere repo: the one linked exchange cannot resolve
	repo := &mockActivityRepo{existing: map[activity.Identity]bool{}}
	svc := newTestImportService(reader, &mockTechnosphereRepo{}, repo, &stubPublisher{})

	result, err := svc.Run(context.Background(), RunOptions{Files: []string{"a.xlsx"}, Apply: true})
	require.NoError(t, err)
	require.True(t, result.HasIssues())
	require.Equal(t, IssueUnresolvedFlow, result.Issues[0].Kind)
	require.Empty(t, repo.written)
	require.Empty(t, result.Activities)
}

func TestRun_ParseFailureIsFatal(t *testing.T) {
	reader := &mockReader{err: errors.New("sheet \"Sheet1\" row 3: unknown header field \"Price\"")}
	svc := newTestImportService(reader, &mockTechnosphereRepo{}, &mockActivityRepo{existing: map[activity.Identity]bool{}}, &stubPublisher{})

	result, err := svc.Run(context.Background(), RunOptions{Files: []string{"a.xlsx"}})
	require.Error(t, err)
	require.Nil(t, result)
	require.Contains(t, err.Error(), "a.xlsx")
}

func TestRun_DryRunReportsOutcomesWithoutWriting(t *testing.T) {
	reader := &mockReader{processes: map[string][]record.Process{
		"a.xlsx": {wellFormedProcess("Copper production")},
	}}
	tech := &mockTechnosphereRepo{flows: []*flow.Flow{
		{Key: flow.Key{Database: "ecoinvent 3.10 cutoff", Code: "abc"}},
	}}
	repo := &mockActivityRepo{existing: map[activity.Identity]bool{}}
	svc := newTestImportService(reader, tech, repo, &stubPublisher{})

	result, err := svc.Run(context.Background(), RunOptions{Files: []string{"a.xlsx"}})
	require.NoError(t, err)
	require.False(t, result.Applied)
	require.False(t, result.HasIssues())
	require.Empty(t, repo.written)
	require.Len(t, result.Activities, 1)
	require.True(t, result.Activities[0].Created)
}

func TestRun_ApplyWritesAndPublishes(t *testing.T) {
	t.Cleanup(func() { inTxFn = composables.InTx })
	inTxFn = noopInTx

	reader := &mockReader{processes: map[string][]record.Process{
		"a.xlsx": {wellFormedProcess("Copper production"), wellFormedProcess("Zinc production")},
	}}
	tech := &mockTechnosphereRepo{flows: []*flow.Flow{
		{Key: flow.Key{Database: "ecoinvent 3.10 cutoff", Code: "abc"}},
	}}
	repo := &mockActivityRepo{existing: map[activity.Identity]bool{}}
	bus := &stubPublisher{}
	svc := newTestImportService(reader, tech, repo, bus)

	result, err := svc.Run(context.Background(), RunOptions{Files: []string{"a.xlsx"}, Apply: true})
	require.NoError(t, err)
	require.True(t, result.Applied)
	require.Len(t, repo.written, 2)
	require.Equal(t, []string{"activity.created", "activity.created"}, bus.events)

	created, updated := result.Counts()
	require.Equal(t, 2, created)
	require.Equal(t, 0, updated)
}

func TestRun_ReimportUpdatesInPlace(t *testing.T) {
	t.Cleanup(func() { inTxFn = composables.InTx })
	inTxFn = noopInTx

	reader := &mockReader{processes: map[string][]record.Process{
		"a.xlsx": {wellFormedProcess("Copper production")},
	}}
	tech := &mockTechnosphereRepo{flows: []*flow.Flow{
		{Key: flow.Key{Database: "ecoinvent 3.10 cutoff", Code: "abc"}},
	}}
	repo := &mockActivityRepo{existing: map[activity.Identity]bool{}}
	bus := &stubPublisher{}
	svc := newTestImportService(reader, tech, repo, bus)

	first, err := svc.Run(context.Background(), RunOptions{Files: []string{"a.xlsx"}, Apply: true})
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), RunOptions{Files: []string{"a.xlsx"}, Apply: true})
	require.NoError(t, err)

	require.Equal(t, first.Activities[0].Identity, second.Activities[0].Identity)
	require.True(t, first.Activities[0].Created)
	require.False(t, second.Activities[0].Created)
	require.Equal(t, []string{"activity.created", "activity.updated"}, bus.events)
}

func TestRun_PersistenceFailureSplitsCommittedAndPending(t *testing.T) {
	t.Cleanup(func() { inTxFn = composables.InTx })
	inTxFn = noopInTx

	reader := &mockReader{processes: map[string][]record.Process{
		"a.xlsx": {wellFormedProcess("Copper production"), wellFormedProcess("Zinc production")},
	}}
	tech := &mockTechnosphereRepo{flows: []*flow.Flow{
		{Key: flow.Key{Database: "ecoinvent 3.10 cutoff", Code: "abc"}},
	}}
	repo := &mockActivityRepo{existing: map[activity.Identity]bool{}, failOn: "Zinc production"}
	svc := newTestImportService(reader, tech, repo, &stubPublisher{})

	result, err := svc.Run(context.Background(), RunOptions{Files: []string{"a.xlsx"}, Apply: true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Zinc production")
	require.NotNil(t, result)

	require.Len(t, result.Activities, 1, "the committed part is reported")
	require.Equal(t, "Copper production", result.Activities[0].Name)
	require.Len(t, result.Pending, 1)
	require.Equal(t, activity.NewIdentity("lci_metals", "Zinc production", "FR"), result.Pending[0])
}
