package cascade

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeline/internal/domain"
)

type fakeSource struct {
	workstreams []domain.Workstream
	tasks       []domain.Task
	calls       int
	err         error
}

func (f *fakeSource) CheckPersonaDependencies(_ context.Context, id string) (domain.Dependencies, error) {
	f.calls++
	if f.err != nil {
		return domain.Dependencies{}, f.err
	}
	return Tally(Persona, id, f.workstreams, f.tasks), nil
}

func (f *fakeSource) CheckWorkstreamDependencies(_ context.Context, id string) (domain.Dependencies, error) {
	f.calls++
	if f.err != nil {
		return domain.Dependencies{}, f.err
	}
	return Tally(Workstream, id, f.workstreams, f.tasks), nil
}

func fixture() *fakeSource {
	src := &fakeSource{
		workstreams: []domain.Workstream{
			{ID: "w1", PersonaID: "p1"},
			{ID: "w2", PersonaID: "p1"},
			{ID: "w3", PersonaID: "p2"},
		},
	}
	for i := 0; i < 3; i++ {
		src.tasks = append(src.tasks, domain.Task{ID: fmt.Sprintf("a%d", i), WorkstreamID: "w1"})
	}
	for i := 0; i < 5; i++ {
		src.tasks = append(src.tasks, domain.Task{ID: fmt.Sprintf("b%d", i), WorkstreamID: "w2"})
	}
	return src
}

func TestPersonaTaskCountIsTransitive(t *testing.T) {
	r := New(fixture())
	deps, err := r.Resolve(context.Background(), Persona, "p1")
	require.NoError(t, err)
	assert.True(t, deps.HasDependencies)
	assert.Equal(t, 2, deps.WorkstreamCount)
	assert.Equal(t, 8, deps.TaskCount)

	again, err := r.Resolve(context.Background(), Persona, "p1")
	require.NoError(t, err)
	assert.Equal(t, deps, again)
}

func TestPersonaWithoutWorkstreamsHasNoDependencies(t *testing.T) {
	deps, err := New(fixture()).Resolve(context.Background(), Persona, "p3")
	require.NoError(t, err)
	assert.False(t, deps.HasDependencies)

	// Workstream without tasks.
	deps, err = New(fixture()).Resolve(context.Background(), Workstream, "w3")
	require.NoError(t, err)
	assert.False(t, deps.HasDependencies)
}

func TestTaskNeverHitsSource(t *testing.T) {
	src := fixture()
	deps, err := New(src).Resolve(context.Background(), Task, "a0")
	require.NoError(t, err)
	assert.False(t, deps.HasDependencies)
	assert.Zero(t, src.calls)
}

func TestGateBlocksUntilAcknowledged(t *testing.T) {
	r := New(fixture())
	_, err := r.Gate(context.Background(), Workstream, "w2", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCascadeRequired))
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, 5, blocked.Deps.TaskCount)

	deps, err := r.Gate(context.Background(), Workstream, "w2", true)
	require.NoError(t, err)
	assert.Equal(t, 5, deps.TaskCount)

	_, err = r.Gate(context.Background(), Persona, "p3", false)
	assert.NoError(t, err)
}

func TestResolveWrapsSourceFailure(t *testing.T) {
	src := fixture()
	src.err = errors.New("offline")
	_, err := New(src).Resolve(context.Background(), Persona, "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, src.err)
	assert.False(t, errors.Is(err, ErrCascadeRequired))
}
