// schedtrace replays a trace file through a scheduler policy one step at a
// time and prints each decision. It does not advance wall-clock time on its
// own between decisions: it is a smoke-testing harness for a trace file, not
// a simulation engine.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/procsim/schedcore/internal/logging"
	"github.com/procsim/schedcore/internal/scheduler"
	"github.com/procsim/schedcore/pkg/traceio"
	"go.uber.org/zap"
)

func main() {
	path := flag.String("trace", "", "path to a .json or .yaml trace file")
	flag.Parse()

	if *path == "" {
		fmt.Println("Usage: schedtrace -trace=<path>")
		os.Exit(1)
	}

	log := logging.New("main")
	defer log.Sync()

	tr, err := traceio.Load(*path)
	if err != nil {
		log.Fatal("load trace failed", zap.Error(err))
	}

	sched, err := buildScheduler(tr)
	if err != nil {
		log.Fatal("build scheduler failed", zap.Error(err))
	}

	eventIdx := 0
	for {
		d := sched.Next()
		log.Info("decision",
			zap.String("kind", d.Kind.String()),
			zap.Int64("pid", int64(d.Pid)),
			zap.Uint64("timeslice", d.Timeslice),
		)

		switch d.Kind {
		case scheduler.DecisionDone, scheduler.DecisionPanic, scheduler.DecisionDeadlock:
			return
		case scheduler.DecisionSleep:
			continue
		}

		if eventIdx >= len(tr.Events) {
			log.Info("trace exhausted while processes remain")
			return
		}
		reason, err := tr.Events[eventIdx].ToStopReason()
		eventIdx++
		if err != nil {
			log.Fatal("bad trace event", zap.Error(err))
		}

		res := sched.Stop(reason)
		log.Info("stop result", zap.String("kind", res.Kind.String()), zap.Int64("pid", int64(res.Pid)))
	}
}

func buildScheduler(tr *traceio.Trace) (scheduler.Scheduler, error) {
	switch tr.Policy {
	case traceio.PolicyRoundRobin:
		return scheduler.NewRoundRobin(tr.Timeslice, tr.MinRemaining), nil
	case traceio.PolicyRoundRobinPriorities:
		return scheduler.NewRoundRobinPriorities(tr.Timeslice, tr.MinRemaining), nil
	case traceio.PolicyCFS:
		return scheduler.NewCFS(tr.Timeslice, tr.MinRemaining), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", tr.Policy)
	}
}
