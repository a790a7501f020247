package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeline/internal/domain"
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func fixture() ([]domain.Task, []domain.Workstream) {
	workstreams := []domain.Workstream{
		{ID: "w1", PersonaID: "p1", Name: "Alpha"},
		{ID: "w2", PersonaID: "p2", Name: "beta"},
	}
	tasks := []domain.Task{
		{ID: "t1", WorkstreamID: "w1", WorkstreamName: "Alpha", Title: "banana", Status: "todo", Priority: "high", CreatedAt: base.Add(3 * time.Hour)},
		{ID: "t2", WorkstreamID: "w1", WorkstreamName: "Alpha", Title: "Apple", Status: `"inprogress"`, Priority: "low", CreatedAt: base.Add(1 * time.Hour)},
		{ID: "t3", WorkstreamID: "w2", WorkstreamName: "beta", Title: "cherry", Status: "done", Priority: "critical", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "t4", WorkstreamID: "w2", WorkstreamName: "beta", Title: "apple", Status: "Backlog", Priority: "medium", CreatedAt: base},
	}
	return tasks, workstreams
}

func ids(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestFiltersAreConjunctive(t *testing.T) {
	tasks, wss := fixture()

	all := Derive(tasks, wss, DefaultFilters(), DefaultSort())
	assert.Len(t, all, 4)

	f := DefaultFilters()
	f.PersonaID = "p1"
	assert.ElementsMatch(t, []string{"t1", "t2"}, ids(Derive(tasks, wss, f, DefaultSort())))

	f = f.WithStatuses("In Progress")
	assert.Equal(t, []string{"t2"}, ids(Derive(tasks, wss, f, DefaultSort())))

	f.WorkstreamID = "w2"
	assert.Empty(t, Derive(tasks, wss, f, DefaultSort()))

	f = DefaultFilters()
	f.WorkstreamID = "w2"
	f = f.WithStatuses("done", "backlog")
	assert.ElementsMatch(t, []string{"t3", "t4"}, ids(Derive(tasks, wss, f, DefaultSort())))
}

func TestEmptyStatusSetMatchesNothing(t *testing.T) {
	tasks, wss := fixture()
	f := DefaultFilters()
	f.Statuses = nil
	assert.Empty(t, Derive(tasks, wss, f, DefaultSort()))
}

func TestTitleSortIsCaseInsensitiveAndStable(t *testing.T) {
	tasks, wss := fixture()
	got := Derive(tasks, wss, DefaultFilters(), Sort{Field: Title, Direction: Asc})
	assert.Equal(t, []string{"t2", "t4", "t1", "t3"}, ids(got))

	desc := Derive(tasks, wss, DefaultFilters(), Sort{Field: Title, Direction: Desc})
	assert.Equal(t, []string{"t3", "t1", "t2", "t4"}, ids(desc))
}

func TestToggle(t *testing.T) {
	s := DefaultSort()
	s = s.Toggle(Title)
	assert.Equal(t, Sort{Field: Title, Direction: Asc}, s)
	s = s.Toggle(Title)
	assert.Equal(t, Desc, s.Direction)
	s = s.Toggle(Title)
	assert.Equal(t, Asc, s.Direction, "double toggle restores direction")
	s = s.Toggle(Priority)
	assert.Equal(t, Sort{Field: Priority, Direction: Asc}, s)
}

func TestEnumAndDateSorts(t *testing.T) {
	tasks, wss := fixture()
	byStatus := Derive(tasks, wss, DefaultFilters(), Sort{Field: Status, Direction: Asc})
	assert.Equal(t, []string{"t4", "t1", "t2", "t3"}, ids(byStatus))

	byPriority := Derive(tasks, wss, DefaultFilters(), Sort{Field: Priority, Direction: Desc})
	assert.Equal(t, []string{"t3", "t1", "t4", "t2"}, ids(byPriority))

	byCreated := Derive(tasks, wss, DefaultFilters(), Sort{Field: CreatedAt, Direction: Asc})
	assert.Equal(t, []string{"t4", "t2", "t3", "t1"}, ids(byCreated))

	byWorkstream := Derive(tasks, wss, DefaultFilters(), Sort{Field: Workstream, Direction: Asc})
	assert.Equal(t, []string{"t1", "t2", "t3", "t4"}, ids(byWorkstream))
}

func TestDeriveDoesNotMutateInput(t *testing.T) {
	tasks, wss := fixture()
	before := ids(tasks)
	_ = Derive(tasks, wss, DefaultFilters(), Sort{Field: Title, Direction: Asc})
	assert.Equal(t, before, ids(tasks))
}

func TestParse(t *testing.T) {
	f, err := ParseField(" Priority ")
	require.NoError(t, err)
	assert.Equal(t, Priority, f)
	_, err = ParseField("color")
	assert.Error(t, err)

	d, err := ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Desc, d)
}

func TestGroup(t *testing.T) {
	tasks, _ := fixture()
	groups := Group(tasks, []string{"todo", "inprogress", "review"})
	assert.Len(t, groups["todo"], 1)
	assert.Len(t, groups["inprogress"], 1)
	assert.Empty(t, groups["review"])
	_, ok := groups["done"]
	assert.False(t, ok)
}
