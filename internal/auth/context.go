package auth

import "context"

type viewContextKey struct{}

// ContextWithView stores a resolved view in context. Guards install this so
// downstream handlers can read the principal without re-resolving.
func ContextWithView(ctx context.Context, v View) context.Context {
	return context.WithValue(ctx, viewContextKey{}, v)
}

// ViewFromContext extracts the resolved view, or an unresolved zero view.
func ViewFromContext(ctx context.Context) View {
	if v, ok := ctx.Value(viewContextKey{}).(View); ok {
		return v
	}
	return View{State: StateUnresolved}
}
