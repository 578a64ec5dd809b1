package domain

import (
	"fmt"
	"strings"
)

// ContextKind names the reading mode a completion belongs to.
type ContextKind string

// Context kinds.
const (
	ContextMain      ContextKind = "main"
	ContextPlan      ContextKind = "plan"
	ContextChallenge ContextKind = "challenge"
)

// Valid returns true if the kind is a recognized value.
func (k ContextKind) Valid() bool {
	switch k {
	case ContextMain, ContextPlan, ContextChallenge:
		return true
	default:
		return false
	}
}

// CompletionContext is Main, Plan(id) or Challenge(id).
// The zero value is the main context. Plan and challenge contexts always carry
// a non-empty reference id; the fields are unexported so no other combination
// can be built.
type CompletionContext struct {
	kind  ContextKind
	refID string
}

// MainContext returns the free-reading context.
func MainContext() CompletionContext {
	return CompletionContext{kind: ContextMain}
}

// PlanContext returns the context of the given plan.
func PlanContext(planID string) CompletionContext {
	return CompletionContext{kind: ContextPlan, refID: planID}
}

// ChallengeContext returns the context of the given challenge.
func ChallengeContext(challengeID string) CompletionContext {
	return CompletionContext{kind: ContextChallenge, refID: challengeID}
}

// ParseCompletionContext builds a context from its stored or wire form.
func ParseCompletionContext(kind, refID string) (CompletionContext, error) {
	switch ContextKind(kind) {
	case ContextMain, "":
		if refID != "" {
			return CompletionContext{}, fmt.Errorf("main context takes no reference id, got %q", refID)
		}
		return MainContext(), nil
	case ContextPlan:
		if refID == "" {
			return CompletionContext{}, fmt.Errorf("plan context requires a plan id")
		}
		return PlanContext(refID), nil
	case ContextChallenge:
		if refID == "" {
			return CompletionContext{}, fmt.Errorf("challenge context requires a challenge id")
		}
		return ChallengeContext(refID), nil
	default:
		return CompletionContext{}, fmt.Errorf("unknown completion context %q", kind)
	}
}

// Kind returns the context kind.
func (c CompletionContext) Kind() ContextKind {
	if c.kind == "" {
		return ContextMain
	}
	return c.kind
}

// RefID returns the plan or challenge id, empty for main.
func (c CompletionContext) RefID() string { return c.refID }

// IsMain reports whether this is the free-reading context.
func (c CompletionContext) IsMain() bool { return c.Kind() == ContextMain }

// PlanID returns the plan id and true for plan contexts.
func (c CompletionContext) PlanID() (string, bool) {
	if c.kind == ContextPlan {
		return c.refID, true
	}
	return "", false
}

// ChallengeID returns the challenge id and true for challenge contexts.
func (c CompletionContext) ChallengeID() (string, bool) {
	if c.kind == ContextChallenge {
		return c.refID, true
	}
	return "", false
}

// String renders "main", "plan:<id>" or "challenge:<id>".
func (c CompletionContext) String() string {
	if c.IsMain() {
		return string(ContextMain)
	}
	return string(c.kind) + ":" + c.refID
}

// MarshalText implements encoding.TextMarshaler using the String form.
func (c CompletionContext) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CompletionContext) UnmarshalText(b []byte) error {
	kind, ref, _ := strings.Cut(string(b), ":")
	parsed, err := ParseCompletionContext(kind, ref)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
