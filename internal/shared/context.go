package shared

import "context"

type actorContextKey struct{}

// Actor identifies who is performing a core operation. Presentation
// collaborators populate it after authenticating; the core only reads it for
// audit attribution and never consults ambient global state.
type Actor struct {
	ID   int64
	Name string
}

// ContextWithActor stores the acting user in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting user, zero-valued when absent.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
