package activity

import (
	"context"
	"strings"
)

// Actor identifies who performed a change.
type Actor struct {
	ActorID  string
	UserID   string
	TenantID string
}

type actorKey struct{}

// WithActor returns a context carrying actor. Events built for writes made
// under that context are attributed to it.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, Actor{
		ActorID:  strings.TrimSpace(actor.ActorID),
		UserID:   strings.TrimSpace(actor.UserID),
		TenantID: strings.TrimSpace(actor.TenantID),
	})
}

// ActorFromContext returns the actor attached with WithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
