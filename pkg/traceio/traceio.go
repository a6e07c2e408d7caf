// Package traceio reads trace files describing a fixed sequence of
// scheduler events: a sequence of stop reasons to feed into next()/stop()
// calls, for smoke-testing a policy by hand outside of any server.
package traceio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy names the scheduler policy a trace file was authored against.
type Policy string

const (
	PolicyRoundRobin           Policy = "round_robin"
	PolicyRoundRobinPriorities Policy = "round_robin_priorities"
	PolicyCFS                  Policy = "cfs"
)

// Event is one entry in a trace file: either "expired" or a named syscall
// with its arguments, mirroring scheduler.StopReason/scheduler.Syscall.
type Event struct {
	Reason string `yaml:"reason" json:"reason"`

	Syscall   string `yaml:"syscall,omitempty" json:"syscall,omitempty"`
	Priority  int8   `yaml:"priority,omitempty" json:"priority,omitempty"`
	EventNum  uint64 `yaml:"event,omitempty" json:"event,omitempty"`
	Ticks     uint64 `yaml:"ticks,omitempty" json:"ticks,omitempty"`
	Remaining uint64 `yaml:"remaining,omitempty" json:"remaining,omitempty"`
}

// Trace is a complete trace file: the policy it targets, its configuration
// knobs, and the ordered events to feed to Stop() whenever Next() produces
// a Run decision.
type Trace struct {
	Policy          Policy  `yaml:"policy" json:"policy"`
	Timeslice       uint64  `yaml:"timeslice" json:"timeslice"`
	MinRemaining    uint64  `yaml:"min_remaining" json:"min_remaining"`
	Events          []Event `yaml:"events" json:"events"`
}

// Load reads a trace file, dispatching on its extension: .yaml/.yml via
// gopkg.in/yaml.v3, anything else as JSON.
func Load(path string) (*Trace, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace file: %w", err)
	}

	var t Trace
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(buf, &t); err != nil {
			return nil, fmt.Errorf("decode yaml trace: %w", err)
		}
	default:
		dec := json.NewDecoder(strings.NewReader(string(buf)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&t); err != nil {
			return nil, fmt.Errorf("decode json trace: %w", err)
		}
	}

	if len(t.Events) == 0 {
		return nil, fmt.Errorf("trace file has no events")
	}
	return &t, nil
}
