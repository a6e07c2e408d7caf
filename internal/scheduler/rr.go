package scheduler

import (
	"sort"

	"github.com/procsim/schedcore/internal/pidalloc"
)

// RoundRobin is the flat FIFO, equal-timeslice policy (§4.3).
type RoundRobin struct {
	running *PCB
	stopped *PCB

	remainingTime uint64
	ready         []*PCB
	waiting       []*PCB

	timeslice    uint64
	minRemaining uint64
	pids         *pidalloc.Allocator
	sleepTime    uint64
}

// NewRoundRobin builds a round-robin scheduler. timeslice must be positive;
// a zero timeslice is a configuration error and panics.
func NewRoundRobin(timeslice, minRemaining uint64) *RoundRobin {
	if timeslice == 0 {
		panic("scheduler: round-robin timeslice must be positive")
	}
	return &RoundRobin{
		timeslice:    timeslice,
		minRemaining: minRemaining,
		pids:         pidalloc.New(),
	}
}

func (s *RoundRobin) incrementTimings(reason StopReason) {
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

	for _, p := range s.ready {
		p.incrementTimings(elapsed, 0, 0)
	}

	decaySleepers(s.waiting, elapsed)
}

// decaySleepers advances every waiting PCB's total time by elapsed and
// decrements any pending Sleep counter, promoting to Ready at zero.
func decaySleepers(waiting []*PCB, elapsed uint64) {
	for _, p := range waiting {
		p.incrementTimings(elapsed, 0, 0)
		w := p.wakeupCondition()
		if w.Kind != WakeupSleep {
			continue
		}
		if w.Value <= elapsed {
			p.setWakeup(noWakeup())
			p.setState(readyState())
		} else {
			p.setWakeup(sleepWakeup(w.Value - elapsed))
		}
	}
}

func (s *RoundRobin) wakeupProcesses() {
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

func (s *RoundRobin) sleep() {
	decaySleepers(s.waiting, s.sleepTime)
	s.sleepTime = 0
	s.wakeupProcesses()
}

func (s *RoundRobin) newProcess(priority int8) Pid {
	pid := Pid(s.pids.Alloc())
	s.ready = append(s.ready, newPCB(pid, priority, 0))
	return pid
}

func (s *RoundRobin) setReady(p *PCB) {
	p.setState(readyState())
	p.setWakeup(noWakeup())
	s.ready = append(s.ready, p)
	s.remainingTime = 0
}

func (s *RoundRobin) setRunning(p *PCB) {
	p.setState(runningState())
	s.running = p
	s.remainingTime = s.timeslice
}

func (s *RoundRobin) isDone() bool {
	return s.running == nil && len(s.ready) == 0 && len(s.waiting) == 0
}

func (s *RoundRobin) pid1Exists() bool {
	return pid1Exists(s.running, s.ready, s.waiting)
}

func pid1Exists(running *PCB, ready, waiting []*PCB) bool {
	if running != nil && running.Pid() == 1 {
		return true
	}
	for _, p := range ready {
		if p.Pid() == 1 {
			return true
		}
	}
	for _, p := range waiting {
		if p.Pid() == 1 {
			return true
		}
	}
	return false
}

func (s *RoundRobin) scheduledProcess() *PCB {
	if len(s.ready) == 0 {
		return nil
	}
	p := s.ready[0]
	s.ready = s.ready[1:]
	return p
}

func findSleepTime(waiting []*PCB) (uint64, bool) {
	var min uint64
	found := false
	for _, p := range waiting {
		w := p.wakeupCondition()
		if w.Kind != WakeupSleep {
			continue
		}
		if !found || w.Value < min {
			min = w.Value
			found = true
		}
	}
	return min, found
}

func (s *RoundRobin) getAllProcesses() []*PCB {
	all := make([]*PCB, 0, len(s.ready)+len(s.waiting)+1)
	all = append(all, s.ready...)
	all = append(all, s.waiting...)
	if s.running != nil {
		all = append(all, s.running)
	}
	return all
}

func (s *RoundRobin) syscallHandler(call Syscall, remaining uint64) SyscallResult {
	switch call.Kind {
	case SyscallFork:
		pid := s.newProcess(call.Priority)

		s.wakeupProcesses()
		if stopped := s.stopped; stopped != nil {
			s.stopped = nil
			if remaining >= s.minRemaining {
				stopped.setState(runningState())
				s.running = stopped
				s.remainingTime = remaining
			} else {
				s.setReady(stopped)
			}
		} else {
			s.remainingTime = 0
		}

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
		if stopped := s.stopped; stopped != nil {
			s.stopped = nil
			if remaining >= s.minRemaining {
				stopped.setState(runningState())
				s.running = stopped
				s.remainingTime = remaining
			} else {
				s.setReady(stopped)
			}
		} else {
			s.remainingTime = 0
		}

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

// Next implements the shared next() ordering (§4.1).
func (s *RoundRobin) Next() Decision {
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

// Stop implements the shared stop() ordering (§4.1).
func (s *RoundRobin) Stop(reason StopReason) SyscallResult {
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
func (s *RoundRobin) List() []Process {
	all := s.getAllProcesses()
	sort.Slice(all, func(i, j int) bool { return all[i].Pid() < all[j].Pid() })
	out := make([]Process, len(all))
	for i, p := range all {
		out[i] = p
	}
	return out
}

var _ Scheduler = (*RoundRobin)(nil)
