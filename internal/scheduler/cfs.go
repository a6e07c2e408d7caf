package scheduler

import (
	"fmt"
	"sort"

	"github.com/procsim/schedcore/internal/pidalloc"
)

// CFS is the vruntime-ordered, dynamically-timesliced policy (§4.5).
type CFS struct {
	running *PCB
	stopped *PCB

	remainingTime uint64
	ready         []*PCB
	waiting       []*PCB

	cpuTime      uint64
	minRemaining uint64
	pids         *pidalloc.Allocator
	sleepTime    uint64
}

// NewCFS builds a CFS scheduler. cpuTime must be positive.
func NewCFS(cpuTime, minRemaining uint64) *CFS {
	if cpuTime == 0 {
		panic("scheduler: CFS cpu_time must be positive")
	}
	return &CFS{
		cpuTime:      cpuTime,
		minRemaining: minRemaining,
		pids:         pidalloc.New(),
	}
}

func (s *CFS) incrementTimings(reason StopReason) {
	var elapsed uint64
	if reason.Kind == ReasonExpired {
		elapsed = s.remainingTime
	} else {
		elapsed = s.remainingTime - reason.Remaining
	}

	if s.stopped != nil {
		s.stopped.addVruntime(elapsed)
		if reason.Kind == ReasonSyscall {
			s.stopped.incrementSyscallTimings(elapsed)
		} else {
			s.stopped.incrementTimings(elapsed, 0, elapsed)
		}
	}

	for _, p := range s.ready {
		p.incrementTimings(elapsed, 0, 0)
	}

	decaySleepers(s.waiting, elapsed)
}

func (s *CFS) wakeupProcesses() {
	stillWaiting := s.waiting[:0:0]
	for _, p := range s.waiting {
		if p.State().Kind == Ready {
			s.ready = append(s.ready, p)
		} else {
			stillWaiting = append(stillWaiting, p)
		}
	}
	s.waiting = stillWaiting
}

func (s *CFS) sleep() {
	decaySleepers(s.waiting, s.sleepTime)
	s.sleepTime = 0
	s.wakeupProcesses()
}

// minVruntime computes the minimum vruntime over the ready set plus, when
// present, the process about to be serviced by this syscall (extra may be
// nil). Returns 0 if that combined set is empty.
func (s *CFS) minVruntime(extra *PCB) uint64 {
	found := false
	var min uint64
	for _, p := range s.ready {
		if !found || p.vruntimeValue() < min {
			min = p.vruntimeValue()
			found = true
		}
	}
	if extra != nil && (!found || extra.vruntimeValue() < min) {
		min = extra.vruntimeValue()
		found = true
	}
	if !found {
		return 0
	}
	return min
}

func (s *CFS) newProcess(priority int8, vruntime uint64) Pid {
	pid := Pid(s.pids.Alloc())
	p := newPCB(pid, priority, vruntime)
	p.setExtra(fmt.Sprintf("vruntime=%d", vruntime))
	s.ready = append(s.ready, p)
	return pid
}

func (s *CFS) size() int {
	n := len(s.ready)
	if s.running != nil {
		n++
	}
	if s.stopped != nil {
		n++
	}
	return n
}

func (s *CFS) setReady(p *PCB) {
	p.setState(readyState())
	p.setWakeup(noWakeup())
	s.ready = append(s.ready, p)
	s.remainingTime = 0
}

func (s *CFS) setRunning(p *PCB, timeslice uint64) {
	p.setState(runningState())
	s.running = p
	s.remainingTime = timeslice
}

func (s *CFS) isDone() bool {
	return s.running == nil && len(s.ready) == 0 && len(s.waiting) == 0
}

func (s *CFS) pid1Exists() bool {
	return pid1Exists(s.running, s.ready, s.waiting)
}

// scheduledProcess sorts the ready set by (vruntime, pid) and pops the
// smallest.
func (s *CFS) scheduledProcess() *PCB {
	if len(s.ready) == 0 {
		return nil
	}
	sort.Slice(s.ready, func(i, j int) bool {
		a, b := s.ready[i], s.ready[j]
		if a.vruntimeValue() != b.vruntimeValue() {
			return a.vruntimeValue() < b.vruntimeValue()
		}
		return a.Pid() < b.Pid()
	})
	p := s.ready[0]
	s.ready = s.ready[1:]
	return p
}

func (s *CFS) getAllProcesses() []*PCB {
	all := make([]*PCB, 0, len(s.ready)+len(s.waiting)+1)
	all = append(all, s.ready...)
	all = append(all, s.waiting...)
	if s.running != nil {
		all = append(all, s.running)
	}
	return all
}

// computeTimeslice implements the dynamic timeslice formula: a floor of
// cpuTime/N when that floor still clears minRemaining, else minRemaining
// itself. A zero result is a configuration error.
func (s *CFS) computeTimeslice() uint64 {
	n := uint64(s.size())
	if n == 0 {
		panic("scheduler: CFS computeTimeslice called with no processes")
	}
	if s.minRemaining == 0 {
		panic("scheduler: CFS minimum_remaining_timeslice must be positive")
	}
	var timeslice uint64
	if s.cpuTime/s.minRemaining >= n {
		timeslice = s.cpuTime / n
	} else {
		timeslice = s.minRemaining
	}
	if timeslice == 0 {
		panic("scheduler: CFS timeslice formula yielded zero")
	}
	return timeslice
}

func (s *CFS) retainOrRequeue(remaining uint64) {
	stopped := s.stopped
	if stopped == nil {
		s.remainingTime = 0
		return
	}
	s.stopped = nil
	if remaining >= s.minRemaining {
		stopped.setState(runningState())
		s.running = stopped
		s.remainingTime = s.computeTimeslice()
		return
	}
	s.setReady(stopped)
}

func (s *CFS) syscallHandler(call Syscall, remaining uint64) SyscallResult {
	switch call.Kind {
	case SyscallFork:
		s.wakeupProcesses()
		pid := s.newProcess(call.Priority, s.minVruntime(s.stopped))
		s.retainOrRequeue(remaining)
		return pidResult(pid)

	case SyscallSignal:
		for _, p := range s.waiting {
			w := p.wakeupCondition()
			if w.Kind == WakeupSignal && w.Value == call.Event {
				p.setState(readyState())
				p.setWakeup(noWakeup())
			}
		}
		s.wakeupProcesses()
		s.retainOrRequeue(remaining)

	case SyscallSleep:
		stopped := s.stopped
		if stopped == nil {
			return noRunningProcessResult()
		}
		s.stopped = nil
		stopped.setState(waitingState(0, false))
		stopped.setWakeup(sleepWakeup(call.Ticks))
		s.waiting = append(s.waiting, stopped)

	case SyscallWait:
		stopped := s.stopped
		if stopped == nil {
			return noRunningProcessResult()
		}
		s.stopped = nil
		stopped.setState(waitingState(call.Event, true))
		stopped.setWakeup(signalWakeup(call.Event))
		s.waiting = append(s.waiting, stopped)

	case SyscallExit:
		s.stopped = nil
		s.wakeupProcesses()
	}

	return successResult()
}

// Next implements the shared next() ordering (§4.1) with CFS's dynamic
// timeslice on dispatch.
func (s *CFS) Next() Decision {
	if s.sleepTime != 0 {
		s.sleep()
	}

	if s.isDone() {
		return doneDecision()
	}

	if !s.pid1Exists() {
		return panicDecision()
	}

	if s.running != nil {
		return runDecision(s.running.Pid(), s.remainingTime)
	}

	if len(s.ready) != 0 {
		timeslice := s.computeTimeslice()
		if p := s.scheduledProcess(); p != nil {
			s.setRunning(p, timeslice)
			return runDecision(s.running.Pid(), timeslice)
		}
	}

	if sleepTime, ok := findSleepTime(s.waiting); ok {
		s.sleepTime = sleepTime
		return sleepDecision(sleepTime)
	}
	return deadlockDecision()
}

// Stop implements the shared stop() ordering (§4.1).
func (s *CFS) Stop(reason StopReason) SyscallResult {
	s.stopped = s.running
	s.running = nil

	s.incrementTimings(reason)

	if reason.Kind == ReasonExpired {
		s.wakeupProcesses()
		if stopped := s.stopped; stopped != nil {
			s.stopped = nil
			s.setReady(stopped)
			return successResult()
		}
		return noRunningProcessResult()
	}

	return s.syscallHandler(reason.Syscall, reason.Remaining)
}

// List implements list(): a snapshot of every PCB sorted by pid ascending.
func (s *CFS) List() []Process {
	all := s.getAllProcesses()
	sort.Slice(all, func(i, j int) bool { return all[i].Pid() < all[j].Pid() })
	out := make([]Process, len(all))
	for i, p := range all {
		out[i] = p
	}
	return out
}

var _ Scheduler = (*CFS)(nil)
