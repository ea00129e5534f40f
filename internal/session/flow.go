package session

import (
	"fmt"
	"strings"
)

// Flow selects the timing and persistence policy for a session.
type Flow string

const (
	FlowGuest         Flow = "guest"
	FlowAuthenticated Flow = "authenticated"
	FlowScheduled     Flow = "scheduled"
)

// FlowPolicy is the per-flow preset applied to a session Config.
type FlowPolicy struct {
	PerQuestionSeconds int
	RequireIdentity    bool
	PersistDetails     bool
	Anonymous          bool
}

// Policies maps each flow to its preset.
type Policies map[Flow]FlowPolicy

// DefaultPolicies returns the built-in presets.
func DefaultPolicies() Policies {
	return NewPolicies(30, 45, 60)
}

// NewPolicies builds presets with the given per-question budgets.
func NewPolicies(guestSeconds, authenticatedSeconds, scheduledSeconds int) Policies {
	return Policies{
		FlowGuest:         {PerQuestionSeconds: guestSeconds, Anonymous: true},
		FlowAuthenticated: {PerQuestionSeconds: authenticatedSeconds, RequireIdentity: true, PersistDetails: true},
		FlowScheduled:     {PerQuestionSeconds: scheduledSeconds, RequireIdentity: true, PersistDetails: true},
	}
}

// ParseFlow maps a request value to a Flow. Empty selects FlowGuest.
func ParseFlow(s string) (Flow, error) {
	switch f := Flow(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FlowGuest, nil
	case FlowGuest, FlowAuthenticated, FlowScheduled:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFlow, s)
	}
}

// Apply fills the flow-dependent fields of cfg.
func (p Policies) Apply(flow Flow, identity *string, cfg Config) (Config, error) {
	policy, ok := p[flow]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownFlow, flow)
	}
	if policy.RequireIdentity && (identity == nil || *identity == "") {
		return Config{}, ErrIdentityRequired
	}

	cfg.Flow = flow
	cfg.PerQuestionSeconds = policy.PerQuestionSeconds
	cfg.WithDetails = policy.PersistDetails
	cfg.Identity = identity
	if policy.Anonymous {
		cfg.Identity = nil
	}
	return cfg, nil
}
