package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceTargetStampsOnce(t *testing.T) {
	day1 := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	target := Target{Progress: 29, BorderProgress: 30, Completed: true}

	assert.True(t, AdvanceTarget(&target, day1))
	assert.Equal(t, 30, target.Progress)
	require.NotNil(t, target.CompletedDatetime)
	assert.Equal(t, day1, *target.CompletedDatetime)

	assert.False(t, AdvanceTarget(&target, day2))
	assert.Equal(t, 30, target.Progress)
	assert.Equal(t, day1, *target.CompletedDatetime)
}

func TestAdvanceTargetResetsCompleted(t *testing.T) {
	target := Target{Progress: 3, BorderProgress: 30, Completed: true}

	assert.True(t, AdvanceTarget(&target, time.Now()))
	assert.Equal(t, 4, target.Progress)
	assert.False(t, target.Completed)
	assert.Nil(t, target.CompletedDatetime)
	assert.True(t, target.Incomplete())
}

func TestScratchExpiry(t *testing.T) {
	now := time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)
	s := NewSessionState("u1")

	s.SetScratch(ScratchEmailCode, "123456", time.Minute, now)
	s.SetScratch(ScratchSelectedTarget, "t1", 0, now)

	v, ok, expired := s.GetScratch(ScratchEmailCode, now.Add(30*time.Second))
	assert.Equal(t, "123456", v)
	assert.True(t, ok)
	assert.False(t, expired)

	_, ok, expired = s.GetScratch(ScratchEmailCode, now.Add(time.Minute))
	assert.False(t, ok)
	assert.True(t, expired)

	_, ok, expired = s.GetScratch("missing", now)
	assert.False(t, ok)
	assert.False(t, expired)

	s.PruneScratch(now.Add(time.Hour))
	assert.Equal(t, map[string]any{ScratchSelectedTarget: "t1"}, s.ScratchValues(now.Add(time.Hour)))
}

func TestCloneIsDeep(t *testing.T) {
	s := NewSessionState("u1")
	s.Trash = []MessageID{"a"}
	s.SetScratch("k", "v", 0, time.Now())

	c := s.Clone()
	c.Trash[0] = "b"
	c.Scratch["k"] = ScratchValue{Value: "changed"}

	assert.Equal(t, MessageID("a"), s.Trash[0])
	assert.Equal(t, "v", s.Scratch["k"].Value)
}

func TestParseAction(t *testing.T) {
	assert.Equal(t, Action{Name: "select", Arg: "42"}, ParseAction("select:42"))
	assert.Equal(t, Action{Name: "back"}, ParseAction("back"))
	assert.Equal(t, "select:42", ActionID("select", "42"))
}

func TestViewKeepsOrder(t *testing.T) {
	v := NewView("hi").Add("b", "B").Add("a", "A").Add("c", "C")

	var keys []string
	for pair := v.Actions.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}

	assert.Equal(t, []string{"b", "a", "c"}, keys)
}
