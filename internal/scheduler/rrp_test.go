package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S6: priority decays by one on every expiry and climbs by one on a
// blocking Sleep, clamped respectively at 0 and fork_priority.
func TestRoundRobinPriorities_S6_Aging(t *testing.T) {
	s := NewRoundRobinPriorities(2, 1)

	res := s.Stop(SyscallStop(Fork(3), 1))
	require.Equal(t, Pid(1), res.Pid)
	assert.Equal(t, int8(3), processByPid(t, s, 1).Priority())

	d := s.Next()
	require.Equal(t, DecisionRun, d.Kind)

	s.Stop(Expired())
	assert.Equal(t, int8(2), processByPid(t, s, 1).Priority())

	s.Next()
	s.Stop(Expired())
	assert.Equal(t, int8(1), processByPid(t, s, 1).Priority())

	s.Next()
	s.Stop(SyscallStop(SleepFor(1), 0))

	d = s.Next()
	require.Equal(t, DecisionSleep, d.Kind)
	d = s.Next()
	require.Equal(t, DecisionRun, d.Kind)
	assert.Equal(t, int8(2), processByPid(t, s, 1).Priority())
}

// Property 9: the highest non-empty priority queue is always selected next,
// FIFO within a level.
func TestRoundRobinPriorities_HighestQueueFirst(t *testing.T) {
	s := NewRoundRobinPriorities(2, 1)

	s.Stop(SyscallStop(Fork(1), 1)) // pid 1, priority 1
	s.Stop(SyscallStop(Fork(4), 1)) // pid 2, priority 4, enqueued first at its level
	s.Stop(SyscallStop(Fork(4), 1)) // pid 3, priority 4, enqueued second

	d := s.Next()
	require.Equal(t, DecisionRun, d.Kind)
	assert.Equal(t, Pid(2), d.Pid, "priority 4 beats priority 1, and pid 2 is the head of its FIFO")

	s.Stop(SyscallStop(Exit(), 0)) // pid 2 leaves without touching priorities

	d = s.Next()
	assert.Equal(t, Pid(3), d.Pid, "pid 3 was behind pid 2 in the same level's FIFO")
	assert.Equal(t, Pid(1), processByPid(t, s, 1).Pid(), "priority 1 still waiting behind level 4")
}

func TestRoundRobinPriorities_ForkPriorityOutOfRangePanics(t *testing.T) {
	s := NewRoundRobinPriorities(2, 1)
	assert.Panics(t, func() { s.Stop(SyscallStop(Fork(6), 1)) })
}
