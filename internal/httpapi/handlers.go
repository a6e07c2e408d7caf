package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/procsim/schedcore/internal/scheduler"
	"go.uber.org/zap"
)

func (h *handlers) listProcesses(c *gin.Context) {
	list := func() (any, error) {
		procs := h.sched.List()
		out := make([]processDTO, len(procs))
		for i, p := range procs {
			out[i] = toProcessDTO(p)
		}
		return out, nil
	}

	if h.rec == nil {
		dtos, _ := list()
		c.JSON(http.StatusOK, dtos)
		return
	}

	v, err := h.rec.CollapseList("processes", list)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, v)
}

// listHistory returns the most recent decisions, newest first. The
// optional ?n= query parameter caps how many are returned.
func (h *handlers) listHistory(c *gin.Context) {
	n := 0
	if s := c.Query("n"); s != "" {
		fmt.Sscanf(s, "%d", &n)
	}
	c.JSON(http.StatusOK, h.history.recent(n))
}

// listTrail returns the durable decision trail recorded in Redis for this
// instance, as opposed to listHistory's in-memory, process-local ring
// buffer. Unavailable when no recorder is configured.
func (h *handlers) listTrail(c *gin.Context) {
	entries, err := h.rec.Snapshot(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// step drives exactly one next()/stop() round trip: it dispatches Next(),
// and, only if that produced a Run decision, immediately feeds the
// caller-supplied stop reason back in. The request body is required when
// this call's Next() returns Run, since stop() needs it; a missing or
// invalid body then gets a 400, not a scheduler panic.
func (h *handlers) step(c *gin.Context) {
	d := h.sched.Next()
	resp := stepResponse{Decision: toDecisionDTO(d)}
	h.history.append(resp.Decision)

	if h.rec != nil {
		h.rec.Record(int64(d.Pid), d.Kind.String(), d.Timeslice)
		if err := h.rec.Flush(c.Request.Context()); err != nil {
			// The trail is an optional audit sink; a Redis hiccup here must
			// not fail the step itself.
			h.log.Warn("trail flush failed", zap.Error(err))
		}
	}

	if d.Kind == scheduler.DecisionRun {
		var req stopRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "stop reason required after a Run decision: " + err.Error()})
			return
		}

		reason, err := req.toStopReason()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}

		result := h.sched.Stop(reason)
		dto := toSyscallResultDTO(result)
		resp.Result = &dto
	}

	c.JSON(http.StatusOK, resp)
}

// pause is a placeholder stateful control op: it records that an operator
// session asked the driver loop to pause between steps. The driver itself
// lives outside this package (spec.md places the real step loop out of
// CORE scope); this just flips the flag an external driver would poll.
func (h *handlers) pause(c *gin.Context) {
	h.paused = !h.paused
	h.log.Info("pause toggled", zap.Bool("paused", h.paused))
	c.JSON(http.StatusOK, gin.H{"paused": h.paused})
}
