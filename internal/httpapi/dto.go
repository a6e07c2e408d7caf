package httpapi

import (
	"fmt"

	"github.com/procsim/schedcore/internal/scheduler"
)

// processDTO is the wire shape of one scheduler.Process snapshot entry.
type processDTO struct {
	Pid       int64  `json:"pid"`
	State     string `json:"state"`
	Priority  int8   `json:"priority"`
	Extra     string `json:"extra,omitempty"`
	TotalTime uint64 `json:"total_time"`
}

func toProcessDTO(p scheduler.Process) processDTO {
	st := p.State()
	return processDTO{
		Pid:       int64(p.Pid()),
		State:     stateName(st.Kind),
		Priority:  p.Priority(),
		Extra:     p.Extra(),
		TotalTime: p.Timings().Total,
	}
}

func stateName(k scheduler.StateKind) string {
	switch k {
	case scheduler.Ready:
		return "ready"
	case scheduler.Running:
		return "running"
	case scheduler.Waiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// stopRequest is the body of POST /api/v1/step: how the process that was
// just dispatched stopped running.
type stopRequest struct {
	Reason string `json:"reason" binding:"required,oneof=expired syscall"`

	// Fields below apply only when reason == "syscall".
	Syscall   string `json:"syscall,omitempty" binding:"omitempty,oneof=fork signal sleep wait exit"`
	Priority  int8   `json:"priority,omitempty"`
	Event     uint64 `json:"event,omitempty"`
	Ticks     uint64 `json:"ticks,omitempty"`
	Remaining uint64 `json:"remaining,omitempty"`
}

func (r stopRequest) toStopReason() (scheduler.StopReason, error) {
	if r.Reason == "expired" {
		return scheduler.Expired(), nil
	}

	var call scheduler.Syscall
	switch r.Syscall {
	case "fork":
		call = scheduler.Fork(r.Priority)
	case "signal":
		call = scheduler.Signal(r.Event)
	case "sleep":
		call = scheduler.SleepFor(r.Ticks)
	case "wait":
		call = scheduler.Wait(r.Event)
	case "exit":
		call = scheduler.Exit()
	default:
		return scheduler.StopReason{}, fmt.Errorf("unknown syscall %q", r.Syscall)
	}
	return scheduler.SyscallStop(call, r.Remaining), nil
}

// decisionDTO is the wire shape of one scheduler.Decision.
type decisionDTO struct {
	Kind      string `json:"kind"`
	Pid       int64  `json:"pid,omitempty"`
	Timeslice uint64 `json:"timeslice,omitempty"`
}

func toDecisionDTO(d scheduler.Decision) decisionDTO {
	names := map[scheduler.DecisionKind]string{
		scheduler.DecisionRun:      "run",
		scheduler.DecisionSleep:    "sleep",
		scheduler.DecisionDone:     "done",
		scheduler.DecisionPanic:    "panic",
		scheduler.DecisionDeadlock: "deadlock",
	}
	return decisionDTO{Kind: names[d.Kind], Pid: int64(d.Pid), Timeslice: d.Timeslice}
}

// syscallResultDTO is the wire shape of a scheduler.SyscallResult.
type syscallResultDTO struct {
	Kind string `json:"kind"`
	Pid  int64  `json:"pid,omitempty"`
}

func toSyscallResultDTO(r scheduler.SyscallResult) syscallResultDTO {
	names := map[scheduler.SyscallResultKind]string{
		scheduler.ResultSuccess:          "success",
		scheduler.ResultPid:              "pid",
		scheduler.ResultNoRunningProcess: "no_running_process",
	}
	return syscallResultDTO{Kind: names[r.Kind], Pid: int64(r.Pid)}
}

// stepResponse reports the decision produced by next(), and, when that
// decision was Run, the result of the stop() the caller fed back in.
type stepResponse struct {
	Decision decisionDTO       `json:"decision"`
	Result   *syscallResultDTO `json:"result,omitempty"`
}
