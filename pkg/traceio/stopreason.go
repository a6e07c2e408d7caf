package traceio

import (
	"fmt"

	"github.com/procsim/schedcore/internal/scheduler"
)

// ToStopReason converts a trace Event to the scheduler.StopReason it
// represents.
func (e Event) ToStopReason() (scheduler.StopReason, error) {
	if e.Reason == "expired" {
		return scheduler.Expired(), nil
	}
	if e.Reason != "syscall" {
		return scheduler.StopReason{}, fmt.Errorf("unknown reason %q", e.Reason)
	}

	var call scheduler.Syscall
	switch e.Syscall {
	case "fork":
		call = scheduler.Fork(e.Priority)
	case "signal":
		call = scheduler.Signal(e.EventNum)
	case "sleep":
		call = scheduler.SleepFor(e.Ticks)
	case "wait":
		call = scheduler.Wait(e.EventNum)
	case "exit":
		call = scheduler.Exit()
	default:
		return scheduler.StopReason{}, fmt.Errorf("unknown syscall %q", e.Syscall)
	}
	return scheduler.SyscallStop(call, e.Remaining), nil
}
