// schedcored is the long-running server binary: it wires a scheduler
// policy to internal/httpapi, with an optional internal/recorder audit
// trail when REDIS_ADDR is set.
package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/procsim/schedcore/internal/httpapi"
	"github.com/procsim/schedcore/internal/logging"
	"github.com/procsim/schedcore/internal/recorder"
	"github.com/procsim/schedcore/internal/scheduler"
	"go.uber.org/zap"
)

func main() {
	policy := flag.String("policy", "round_robin", "round_robin | round_robin_priorities | cfs")
	timeslice := flag.Uint64("timeslice", 10, "timeslice/cpu_time quantum in ticks")
	minRemaining := flag.Uint64("min-remaining", 2, "minimum_remaining_timeslice, in ticks")
	addr := flag.String("addr", "127.0.0.1:8080", "listen address")
	flag.Parse()

	log := logging.New("main")
	defer log.Sync()

	sched, err := newScheduler(*policy, *timeslice, *minRemaining)
	if err != nil {
		log.Fatal("scheduler construction failed", zap.Error(err))
	}

	var rec *recorder.Recorder
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr != "" {
		rec = recorder.New(redisAddr, 0, log)
		defer rec.Close()
	}

	router, err := httpapi.NewRouter(httpapi.Options{
		Log:       log,
		Sched:     sched,
		Rec:       rec,
		Dev:       os.Getenv("ENV") == "dev",
		RedisAddr: redisAddr,
	})
	if err != nil {
		log.Fatal("router construction failed", zap.Error(err))
	}

	httpserver := &http.Server{
		Addr:           *addr,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 15,
		ErrorLog:       zap.NewStdLog(log.Named("http").WithOptions(zap.AddCallerSkip(1))),
	}

	log.Info("running HTTP server", zap.String("addr", *addr), zap.String("policy", *policy))
	if err := httpserver.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server failed", zap.Error(err))
	}
}

func newScheduler(policy string, timeslice, minRemaining uint64) (scheduler.Scheduler, error) {
	switch policy {
	case "round_robin":
		return scheduler.NewRoundRobin(timeslice, minRemaining), nil
	case "round_robin_priorities":
		return scheduler.NewRoundRobinPriorities(timeslice, minRemaining), nil
	case "cfs":
		return scheduler.NewCFS(timeslice, minRemaining), nil
	default:
		return nil, errUnknownPolicy(policy)
	}
}

type errUnknownPolicy string

func (e errUnknownPolicy) Error() string { return "unknown policy: " + string(e) }
