package studio

import (
	"encoding/json"

	"github.com/raine/room-design-studio/internal/design"
)

// State is a step of a design run.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateGeneratingImage
	StateGeneratingBOQ
	StateSettledSuccess
	StateSettledFailure
)

var stateNames = map[State]string{
	StateIdle:            "idle",
	StateValidating:      "validating",
	StateGeneratingImage: "generating_image",
	StateGeneratingBOQ:   "generating_boq",
	StateSettledSuccess:  "settled_success",
	StateSettledFailure:  "settled_failure",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Settled reports whether s is terminal.
func (s State) Settled() bool {
	return s == StateSettledSuccess || s == StateSettledFailure
}

// Diagnostic notes a degraded but non-fatal step, e.g. a BOQ stage that
// fell back to the synthetic estimate.
type Diagnostic struct {
	Stage   string           `json:"stage"`
	Kind    design.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

// Outcome is the settled result of one Generate or Regenerate call.
type Outcome struct {
	ID          string         `json:"id"`
	State       State          `json:"state"`
	Transitions []State        `json:"transitions"`
	Request     design.Request `json:"request"`
	Result      design.Result  `json:"result"`
	Total       float64        `json:"total"`
	Balance     int            `json:"balance"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`
}

func (o *Outcome) enter(s State) {
	o.State = s
	o.Transitions = append(o.Transitions, s)
}

func (o *Outcome) diagnose(stage string, kind design.ErrorKind, msg string) {
	o.Diagnostics = append(o.Diagnostics, Diagnostic{Stage: stage, Kind: kind, Message: msg})
}
