package scheduler

import (
	"sort"

	"github.com/procsim/schedcore/internal/pidalloc"
)

// priorityLevels is the number of RRP priority queues (0..=5).
const priorityLevels = 6

// RoundRobinPriorities is the six-level priority-queue policy (§4.4).
// Priority ages downward on preemption by expiry and upward on blocking via
// Sleep/Wait; Fork leaves priority untouched (see DESIGN.md for why this
// implementation departs from one variant of the reference source).
type RoundRobinPriorities struct {
	running *PCB
	stopped *PCB

	remainingTime uint64
	ready         [priorityLevels][]*PCB
	waiting       []*PCB

	timeslice    uint64
	minRemaining uint64
	pids         *pidalloc.Allocator
	sleepTime    uint64
}

// NewRoundRobinPriorities builds an RRP scheduler. timeslice must be
// positive.
func NewRoundRobinPriorities(timeslice, minRemaining uint64) *RoundRobinPriorities {
	if timeslice == 0 {
		panic("scheduler: round-robin-priorities timeslice must be positive")
	}
	return &RoundRobinPriorities{
		timeslice:    timeslice,
		minRemaining: minRemaining,
		pids:         pidalloc.New(),
	}
}

// checkPriority validates a priority is a legal queue index, panicking
// otherwise (Fork with an out-of-range priority is a configuration error,
// per §6's constructor note).
func checkPriority(priority int8) int {
	if priority < 0 || int(priority) >= priorityLevels {
		panic("scheduler: RRP priority out of range [0,5]")
	}
	return int(priority)
}

func (s *RoundRobinPriorities) flattenReady() []*PCB {
	all := make([]*PCB, 0)
	for _, q := range s.ready {
		all = append(all, q...)
	}
	return all
}

func (s *RoundRobinPriorities) incrementTimings(reason StopReason) {
	var elapsed uint64
	if reason.Kind == ReasonExpired {
		elapsed = s.remainingTime
	} else {
		elapsed = s.remainingTime - reason.Remaining
	}

	if s.stopped != nil {
		if reason.Kind == ReasonSyscall {
			s.stopped.incrementSyscallTimings(elapsed)
		} else {
			s.stopped.incrementTimings(elapsed, 0, elapsed)
		}
	}

	for _, q := range s.ready {
		for _, p := range q {
			p.incrementTimings(elapsed, 0, 0)
		}
	}

	decaySleepers(s.waiting, elapsed)
}

func (s *RoundRobinPriorities) wakeupProcesses() {
	stillWaiting := s.waiting[:0:0]
	for _, p := range s.waiting {
		if p.State().Kind == Ready {
			idx := checkPriority(p.Priority())
			s.ready[idx] = append(s.ready[idx], p)
		} else {
			stillWaiting = append(stillWaiting, p)
		}
	}
	s.waiting = stillWaiting
}

func (s *RoundRobinPriorities) sleep() {
	decaySleepers(s.waiting, s.sleepTime)
	s.sleepTime = 0
	s.wakeupProcesses()
}

func (s *RoundRobinPriorities) newProcess(priority int8) Pid {
	idx := checkPriority(priority)
	pid := Pid(s.pids.Alloc())
	s.ready[idx] = append(s.ready[idx], newPCB(pid, priority, 0))
	return pid
}

func (s *RoundRobinPriorities) setReady(p *PCB) {
	p.setState(readyState())
	p.setWakeup(noWakeup())
	idx := checkPriority(p.Priority())
	s.ready[idx] = append(s.ready[idx], p)
	s.remainingTime = 0
}

func (s *RoundRobinPriorities) setRunning(p *PCB) {
	p.setState(runningState())
	s.running = p
	s.remainingTime = s.timeslice
}

func (s *RoundRobinPriorities) isDone() bool {
	if s.running != nil || len(s.waiting) != 0 {
		return false
	}
	for _, q := range s.ready {
		if len(q) != 0 {
			return false
		}
	}
	return true
}

func (s *RoundRobinPriorities) pid1Exists() bool {
	return pid1Exists(s.running, s.flattenReady(), s.waiting)
}

// scheduledProcess pops the front of the highest non-empty priority queue.
func (s *RoundRobinPriorities) scheduledProcess() *PCB {
	for idx := priorityLevels - 1; idx >= 0; idx-- {
		if len(s.ready[idx]) == 0 {
			continue
		}
		p := s.ready[idx][0]
		s.ready[idx] = s.ready[idx][1:]
		return p
	}
	return nil
}

func (s *RoundRobinPriorities) getAllProcesses() []*PCB {
	all := s.flattenReady()
	all = append(all, s.waiting...)
	if s.running != nil {
		all = append(all, s.running)
	}
	return all
}

func (s *RoundRobinPriorities) retainOrRequeue(remaining uint64, ageOnRequeue bool) {
	stopped := s.stopped
	if stopped == nil {
		s.remainingTime = 0
		return
	}
	s.stopped = nil
	if remaining >= s.minRemaining {
		stopped.setState(runningState())
		s.running = stopped
		s.remainingTime = remaining
		return
	}
	if ageOnRequeue {
		stopped.incrementPriority()
	}
	s.setReady(stopped)
}

func (s *RoundRobinPriorities) syscallHandler(call Syscall, remaining uint64) SyscallResult {
	switch call.Kind {
	case SyscallFork:
		pid := s.newProcess(call.Priority)
		s.wakeupProcesses()
		// Fork never ages the stopped process's priority, retained or requeued.
		s.retainOrRequeue(remaining, false)
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
		s.retainOrRequeue(remaining, true)

	case SyscallSleep:
		stopped := s.stopped
		if stopped == nil {
			return noRunningProcessResult()
		}
		s.stopped = nil
		stopped.setState(waitingState(0, false))
		stopped.setWakeup(sleepWakeup(call.Ticks))
		stopped.incrementPriority()
		s.waiting = append(s.waiting, stopped)

	case SyscallWait:
		stopped := s.stopped
		if stopped == nil {
			return noRunningProcessResult()
		}
		s.stopped = nil
		stopped.setState(waitingState(call.Event, true))
		stopped.setWakeup(signalWakeup(call.Event))
		stopped.incrementPriority()
		s.waiting = append(s.waiting, stopped)

	case SyscallExit:
		s.stopped = nil
		s.wakeupProcesses()
	}

	return successResult()
}

// Next implements the shared next() ordering (§4.1).
func (s *RoundRobinPriorities) Next() Decision {
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

	if p := s.scheduledProcess(); p != nil {
		s.setRunning(p)
		return runDecision(s.running.Pid(), s.timeslice)
	}

	if sleepTime, ok := findSleepTime(s.waiting); ok {
		s.sleepTime = sleepTime
		return sleepDecision(sleepTime)
	}
	return deadlockDecision()
}

// Stop implements the shared stop() ordering (§4.1), with RRP's
// priority-decrement-on-expiry rule.
func (s *RoundRobinPriorities) Stop(reason StopReason) SyscallResult {
	s.stopped = s.running
	s.running = nil

	s.incrementTimings(reason)

	if reason.Kind == ReasonExpired {
		s.wakeupProcesses()
		if stopped := s.stopped; stopped != nil {
			s.stopped = nil
			stopped.decrementPriority()
			s.setReady(stopped)
			return successResult()
		}
		return noRunningProcessResult()
	}

	return s.syscallHandler(reason.Syscall, reason.Remaining)
}

// List implements list(): a snapshot of every PCB sorted by pid ascending.
func (s *RoundRobinPriorities) List() []Process {
	all := s.getAllProcesses()
	sort.Slice(all, func(i, j int) bool { return all[i].Pid() < all[j].Pid() })
	out := make([]Process, len(all))
	for i, p := range all {
		out[i] = p
	}
	return out
}

var _ Scheduler = (*RoundRobinPriorities)(nil)
