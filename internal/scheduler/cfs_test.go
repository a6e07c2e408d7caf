package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property 14 + 12: a newborn inherits the minimum vruntime over ready ∪
// stopped at fork time, and the ready set always dispatches the smallest
// (vruntime, pid) next.
func TestCFS_NewbornVruntimeAndOrdering(t *testing.T) {
	s := NewCFS(10, 2)

	res := s.Stop(SyscallStop(Fork(0), 1))
	require.Equal(t, Pid(1), res.Pid)

	d := s.Next()
	require.Equal(t, DecisionRun, d.Kind)
	assert.Equal(t, Pid(1), d.Pid)
	assert.Equal(t, uint64(10), d.Timeslice, "N=1: cpu_time/min_remaining=5 >= 1, so slice = cpu_time/1")

	// pid 1 runs 5 ticks before forking pid 2 with 5 ticks left: it accrues
	// 5 vruntime, and pid 2 is born with that same vruntime (the minimum
	// over the ready ∪ stopped set, which at this point is just pid 1).
	res = s.Stop(SyscallStop(Fork(0), 5))
	require.Equal(t, Pid(2), res.Pid)
	assert.Equal(t, uint64(5), processByPid(t, s, 2).(*PCB).vruntimeValue())

	// pid 1 is retained (5 >= min_remaining 2): N is now 2 (pid 1 running,
	// pid 2 ready), so the recomputed slice is cpu_time/N.
	d = s.Next()
	require.Equal(t, DecisionRun, d.Kind)
	assert.Equal(t, Pid(1), d.Pid)
	assert.Equal(t, uint64(5), d.Timeslice)

	// Let pid 1 run to expiry: its vruntime climbs past pid 2's.
	s.Stop(Expired())
	assert.Equal(t, uint64(10), processByPid(t, s, 1).(*PCB).vruntimeValue())

	// pid 2 has the smaller vruntime now and runs next.
	d = s.Next()
	require.Equal(t, DecisionRun, d.Kind)
	assert.Equal(t, Pid(2), d.Pid, "smallest vruntime is dispatched first")
}

func TestCFS_ExtraAnnotatesVruntime(t *testing.T) {
	s := NewCFS(10, 2)
	s.Stop(SyscallStop(Fork(0), 1))
	s.Next()
	s.Stop(Expired())

	p := processByPid(t, s, 1)
	assert.Equal(t, "vruntime=10", p.Extra())
}

func TestCFS_ZeroCPUTimeConfigPanics(t *testing.T) {
	assert.Panics(t, func() { NewCFS(0, 1) })
}

func TestCFS_ZeroMinRemainingPanicsOnDispatch(t *testing.T) {
	s := NewCFS(10, 0)
	s.Stop(SyscallStop(Fork(0), 1))
	assert.Panics(t, func() { s.Next() })
}
