package scheduler

import "fmt"

// StateKind is the coarse state a process occupies.
type StateKind int

const (
	Ready StateKind = iota
	Running
	Waiting
)

func (k StateKind) String() string {
	switch k {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Waiting:
		return "Waiting"
	default:
		return "Unknown"
	}
}

// ProcessState is Ready, Running, or Waiting on an optional event. A Waiting
// state with HasEvent false is a sleeping process, paired with a
// WakeupCondition of kind WakeupSleep on the owning PCB.
type ProcessState struct {
	Kind     StateKind
	Event    uint64
	HasEvent bool
}

func readyState() ProcessState   { return ProcessState{Kind: Ready} }
func runningState() ProcessState { return ProcessState{Kind: Running} }
func waitingState(event uint64, hasEvent bool) ProcessState {
	return ProcessState{Kind: Waiting, Event: event, HasEvent: hasEvent}
}

func (s ProcessState) String() string {
	if s.Kind == Waiting && s.HasEvent {
		return fmt.Sprintf("Waiting{event=%d}", s.Event)
	}
	return s.Kind.String()
}

// WakeupKind distinguishes the reason a Waiting process will become Ready.
type WakeupKind int

const (
	WakeupNone WakeupKind = iota
	WakeupSleep
	WakeupSignal
)

// WakeupCondition is the condition under which a Waiting PCB returns to
// Ready: a remaining sleep tick count, a signal event number, or none at all
// (valid only outside the Waiting state).
type WakeupCondition struct {
	Kind  WakeupKind
	Value uint64
}

func noWakeup() WakeupCondition          { return WakeupCondition{Kind: WakeupNone} }
func sleepWakeup(ticks uint64) WakeupCondition  { return WakeupCondition{Kind: WakeupSleep, Value: ticks} }
func signalWakeup(event uint64) WakeupCondition { return WakeupCondition{Kind: WakeupSignal, Value: event} }

// Timings is the cumulative (total, syscall, execution) tick triple tracked
// for every PCB. syscall + execution <= total always holds.
type Timings struct {
	Total     uint64
	Syscall   uint64
	Execution uint64
}

// PCB is the process control block shared by all three policies. priority
// and vruntime are only meaningful for RRP and CFS respectively; RR leaves
// them at their zero values.
type PCB struct {
	pid          Pid
	state        ProcessState
	timings      Timings
	wakeup       WakeupCondition
	forkPriority int8
	priority     int8
	vruntime     uint64
	extra        string
}

// newPCB creates a freshly forked PCB: Ready, zeroed timings, no wakeup.
func newPCB(pid Pid, priority int8, vruntime uint64) *PCB {
	return &PCB{
		pid:          pid,
		state:        readyState(),
		forkPriority: priority,
		priority:     priority,
		vruntime:     vruntime,
	}
}

func (p *PCB) Pid() Pid             { return p.pid }
func (p *PCB) State() ProcessState  { return p.state }
func (p *PCB) Timings() Timings     { return p.timings }
func (p *PCB) Priority() int8       { return p.priority }
func (p *PCB) Extra() string        { return p.extra }

func (p *PCB) setState(s ProcessState)       { p.state = s }
func (p *PCB) wakeupCondition() WakeupCondition { return p.wakeup }
func (p *PCB) setWakeup(w WakeupCondition)   { p.wakeup = w }
func (p *PCB) setExtra(extra string)         { p.extra = extra }
func (p *PCB) vruntimeValue() uint64         { return p.vruntime }

func (p *PCB) addVruntime(delta uint64) {
	p.vruntime += delta
	p.setExtra(fmt.Sprintf("vruntime=%d", p.vruntime))
}

// incrementTimings advances the timings triple by the given deltas.
func (p *PCB) incrementTimings(total, syscall, execution uint64) {
	p.timings.Total += total
	p.timings.Syscall += syscall
	p.timings.Execution += execution
}

// incrementSyscallTimings charges a syscall's 1-tick service cost against
// elapsed, the CPU time the stopped process used this step. The driver
// contract guarantees elapsed >= 1 on a syscall stop (a Fork, for
// instance, must report remaining = original_remaining - 1); elapsed == 0
// is guarded here rather than trusted: nothing is charged, since execution
// would otherwise underflow to a huge value and a 1-tick syscall charge
// would exceed the zero total.
func (p *PCB) incrementSyscallTimings(elapsed uint64) {
	if elapsed == 0 {
		return
	}
	p.incrementTimings(elapsed, 1, elapsed-1)
}

// incrementPriority raises priority by one, never past forkPriority.
func (p *PCB) incrementPriority() {
	if p.priority != p.forkPriority {
		p.priority++
	}
}

// decrementPriority lowers priority by one, never below zero.
func (p *PCB) decrementPriority() {
	if p.priority != 0 {
		p.priority--
	}
}
