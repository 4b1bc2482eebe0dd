package resolver

import "context"

// Resolver computes a Plan (package wires) for a given Input.
//
// The plan is a simulation of what a module runtime would bind; nothing is installed.
type Resolver interface {
	Resolve(ctx context.Context, in Input) (Plan, error)
}
