package context

import "context"

// Actor identifies who triggered an operation (office user name, "worker", "cli").
// Authentication is handled outside this service; the value is informational
// and ends up in audit records and document fields such as AcceptedBy.
type Actor struct {
	Name   string
	Source string
}

type actorKey struct{}

// WithActor adds Actor to context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// GetActor returns the Actor from context, or a system actor.
func GetActor(ctx context.Context) Actor {
	if v, ok := ctx.Value(actorKey{}).(Actor); ok && v.Name != "" {
		return v
	}
	return Actor{Name: "system", Source: "system"}
}
