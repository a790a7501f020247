package flow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateTransitions(t *testing.T) {
	var s State[[]string]
	assert.Equal(t, Idle, s.Phase())
	_, ok := s.Data()
	assert.False(t, ok)

	s = s.Start()
	assert.Equal(t, Loading, s.Phase())

	s = s.Succeed([]string{"a"})
	data, ok := s.Data()
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, data)

	boom := errors.New("boom")
	s = s.Start().Fail(boom)
	assert.Equal(t, Failed, s.Phase())
	assert.ErrorIs(t, s.Err(), boom)
	data, ok = s.Data()
	assert.True(t, ok, "failure keeps previous data")
	assert.Equal(t, []string{"a"}, data)
	assert.Equal(t, "failed: boom", s.String())
}
