package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCleansRawValues(t *testing.T) {
	cases := map[string]string{
		`"inprogress"`:     "inprogress",
		`\"review\"`:       "review",
		`'Done'`:           "done",
		"In Progress":      "inprogress",
		"  TODO \n":        "todo",
		`"\"backlog\""`:    "backlog",
		"":                 "backlog",
		"archived":         "backlog",
		`"`:                "backlog",
		"in\tprogress":     "inprogress",
		"R e V i E w":      "review",
	}
	for raw, want := range cases {
		assert.Equal(t, want, TaskStatuses.Normalize(raw), "raw=%q", raw)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{`"inprogress"`, `\"High\"`, " Critical ", "unknown", "", `'medium'`}
	for _, opts := range []Options{TaskStatuses, Priorities, WorkstreamStatuses} {
		for _, in := range inputs {
			once := opts.Normalize(in)
			assert.Equal(t, once, opts.Normalize(once), "input=%q", in)
			_, ok := opts.Lookup(once)
			assert.True(t, ok, "normalized value %q must be a member", once)
		}
	}
}

func TestPriorityFallbackIsFirstMember(t *testing.T) {
	assert.Equal(t, "low", Priority("urgent"))
	assert.Equal(t, "critical", Priority(`"CRITICAL"`))
	assert.Equal(t, "planning", Workstream("???"))
	assert.Equal(t, "paused", Workstream(" Paused"))
}

func TestMatchRejectsUnknown(t *testing.T) {
	tag, ok := TaskStatuses.Match(`"Done"`)
	require.True(t, ok)
	assert.Equal(t, "done", tag)

	_, ok = TaskStatuses.Match("finished")
	assert.False(t, ok)
}

func TestRankAndLabels(t *testing.T) {
	assert.Equal(t, 0, Priorities.Rank("low"))
	assert.Equal(t, 3, Priorities.Rank("critical"))
	assert.Equal(t, len(Priorities), Priorities.Rank("nope"))
	assert.Equal(t, "In Progress", TaskStatuses.Label("inprogress"))
	assert.Equal(t, "weird", TaskStatuses.Label("weird"))
	assert.Equal(t, "#ef4444", Priorities.Color("critical"))
	assert.Equal(t, []string{"backlog", "todo", "inprogress", "review", "done"}, TaskStatuses.Tags())
}
