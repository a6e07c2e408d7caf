package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bootstrap(t *testing.T, s Scheduler, priority int8) Pid {
	t.Helper()
	res := s.Stop(SyscallStop(Fork(priority), 1))
	require.Equal(t, ResultPid, res.Kind)
	return res.Pid
}

// S1: a single fork followed by an immediate exit reaches Done with an
// empty process list.
func TestRoundRobin_S1_SingleForkExit(t *testing.T) {
	s := NewRoundRobin(2, 1)

	pid := bootstrap(t, s, 5)
	require.Equal(t, Pid(1), pid)

	d := s.Next()
	require.Equal(t, DecisionRun, d.Kind)
	assert.Equal(t, Pid(1), d.Pid)
	assert.Equal(t, uint64(2), d.Timeslice)

	res := s.Stop(SyscallStop(Exit(), 1))
	assert.Equal(t, ResultSuccess, res.Kind)

	d = s.Next()
	assert.Equal(t, DecisionDone, d.Kind)
	assert.Empty(t, s.List())
}

// S2: a process forked with insufficient remaining timeslice is requeued
// behind its sibling, and expiry cycles the two round-robin.
func TestRoundRobin_S2_ExpiredRoundRobin(t *testing.T) {
	s := NewRoundRobin(2, 1)
	bootstrap(t, s, 5)
	s.Next() // Run{1,2}

	res := s.Stop(SyscallStop(Fork(5), 0))
	require.Equal(t, ResultPid, res.Kind)
	require.Equal(t, Pid(2), res.Pid)

	d := s.Next()
	require.Equal(t, DecisionRun, d.Kind)
	assert.Equal(t, Pid(2), d.Pid, "pid 2 runs first: pid 1 was requeued behind it")
	assert.Equal(t, uint64(2), d.Timeslice)

	s.Stop(Expired())

	d = s.Next()
	require.Equal(t, DecisionRun, d.Kind)
	assert.Equal(t, Pid(1), d.Pid)
	assert.Equal(t, uint64(2), d.Timeslice)
}

// S3: once pid 1 exits while other processes remain, the scheduler panics.
func TestRoundRobin_S3_Panic(t *testing.T) {
	s := NewRoundRobin(2, 1)
	bootstrap(t, s, 5)
	s.Next() // Run{1,2}

	res := s.Stop(SyscallStop(Fork(5), 1))
	require.Equal(t, Pid(2), res.Pid)
	s.Next() // Run{1,1}, pid 1 retained (remaining 1 >= min_remaining 1)

	s.Stop(SyscallStop(Exit(), 0))

	d := s.Next()
	assert.Equal(t, DecisionPanic, d.Kind)
}

// S4: two processes each blocked waiting on a signal nobody will raise is a
// deadlock.
func TestRoundRobin_S4_Deadlock(t *testing.T) {
	s := NewRoundRobin(2, 1)
	bootstrap(t, s, 5)
	s.Next() // Run{1,2}

	s.Stop(SyscallStop(Fork(5), 1)) // pid 2, pid 1 retained
	s.Next()                        // Run{1,1}

	s.Stop(SyscallStop(Wait(7), 0)) // pid 1 waits on event 7

	d := s.Next()
	require.Equal(t, DecisionRun, d.Kind)
	assert.Equal(t, Pid(2), d.Pid)

	s.Stop(SyscallStop(Wait(8), 0)) // pid 2 waits on event 8

	d = s.Next()
	assert.Equal(t, DecisionDeadlock, d.Kind)
}

// S5: Sleep fast-forwards the clock exactly to the smallest pending wakeup,
// and the following Next() dispatches rather than sleeping again.
func TestRoundRobin_S5_SleepFastForward(t *testing.T) {
	s := NewRoundRobin(2, 1)
	bootstrap(t, s, 5)
	s.Next() // Run{1,2}

	s.Stop(SyscallStop(SleepFor(5), 0))

	before := processByPid(t, s, 1).Timings().Total

	d := s.Next()
	require.Equal(t, DecisionSleep, d.Kind)
	assert.Equal(t, uint64(5), d.Timeslice)

	d = s.Next()
	require.Equal(t, DecisionRun, d.Kind, "second Next() without an intervening Stop() must dispatch")
	assert.Equal(t, Pid(1), d.Pid)
	assert.Equal(t, uint64(2), d.Timeslice)

	after := processByPid(t, s, 1).Timings().Total
	assert.Equal(t, before+5, after)
}

func TestRoundRobin_ZeroTimesliceConfigPanics(t *testing.T) {
	assert.Panics(t, func() { NewRoundRobin(0, 1) })
}

func TestRoundRobin_ListSortedByPid(t *testing.T) {
	s := NewRoundRobin(2, 1)
	// Each of these bootstraps a fresh pid with no running process behind
	// it, mirroring three independent process trees forking their own
	// first child.
	pid1 := bootstrap(t, s, 0)
	pid2 := bootstrap(t, s, 0)
	pid3 := bootstrap(t, s, 0)
	require.True(t, pid1 < pid2 && pid2 < pid3)

	procs := s.List()
	require.Len(t, procs, 3)
	for i := 1; i < len(procs); i++ {
		assert.Less(t, procs[i-1].Pid(), procs[i].Pid())
	}
}

func processByPid(t *testing.T, s Scheduler, pid Pid) Process {
	t.Helper()
	for _, p := range s.List() {
		if p.Pid() == pid {
			return p
		}
	}
	t.Fatalf("pid %d not found", pid)
	return nil
}
