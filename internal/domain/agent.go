package domain

import "fmt"

// Role describes an agent's relationship to other agents.
// Pilot agents orchestrate; crew agents do the work. The role is
// descriptive metadata and does not change core behavior.
type Role string

const (
	RolePilot Role = "pilot"
	RoleCrew  Role = "crew"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RolePilot || r == RoleCrew
}

// Instructions is the base text an agent's personality is built from.
// It is either static text or computed by a function at build time.
// Exactly one of Static/Computed should be set; Computed wins when both are.
type Instructions struct {
	Static   string
	Computed func() (string, error)
}

// StaticInstructions wraps fixed instruction text.
func StaticInstructions(text string) Instructions {
	return Instructions{Static: text}
}

// ComputedInstructions wraps a zero-argument generator invoked at
// personality-build time. Its error propagates to the caller unchanged.
func ComputedInstructions(fn func() (string, error)) Instructions {
	return Instructions{Computed: fn}
}

// Resolve returns the instruction text, invoking the generator if set.
func (in Instructions) Resolve() (string, error) {
	if in.Computed != nil {
		return in.Computed()
	}
	return in.Static, nil
}

// Tendencies maps trait names to normalized strength scores.
// 0 means the trait is absent, 1 maximal.
type Tendencies map[string]float64

// Validate rejects any score outside [0,1].
func (t Tendencies) Validate() error {
	for name, score := range t {
		if score < 0 || score > 1 {
			return NewDomainError("Tendencies.Validate", ErrInvalidInput,
				fmt.Sprintf("tendency %q score %v outside [0,1]", name, score))
		}
	}
	return nil
}

// AgentSpec is the behavioral configuration an Agent is constructed from.
type AgentSpec struct {
	Name         string
	Model        string
	Instructions Instructions
	Tendencies   Tendencies // nil = no tendency profile
	Role         Role
	Tools        []Tool      // optional capability objects
	Retrievers   []Retriever // optional knowledge sources

	// SwallowCommErrors controls Prompt's failure behavior: when true,
	// communication errors are logged and collapsed to a nil response;
	// when false they propagate to the caller.
	SwallowCommErrors bool
}

// Validate checks the spec for construction-time errors.
func (s AgentSpec) Validate() error {
	if s.Name == "" {
		return NewDomainError("AgentSpec.Validate", ErrInvalidInput, "name is required")
	}
	if s.Model == "" {
		return NewDomainError("AgentSpec.Validate", ErrInvalidInput, "model is required")
	}
	if s.Role != "" && !s.Role.Valid() {
		return NewDomainError("AgentSpec.Validate", ErrInvalidInput,
			fmt.Sprintf("unknown role %q", s.Role))
	}
	if err := s.Tendencies.Validate(); err != nil {
		return err
	}
	return nil
}

// AgentStatus is a read-only snapshot of a running agent instance.
type AgentStatus struct {
	Name           string `json:"name"`
	Model          string `json:"model"`
	Role           Role   `json:"role"`
	ActiveSessions int    `json:"active_sessions"`
}
