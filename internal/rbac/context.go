package rbac

import "context"

type userContextKey struct{}

// ContextWithUser stores the request user in context.
func ContextWithUser(ctx context.Context, user RequestUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the request user from context.
func UserFromContext(ctx context.Context) (RequestUser, bool) {
	user, ok := ctx.Value(userContextKey{}).(RequestUser)
	return user, ok
}
