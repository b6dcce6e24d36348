package session

import "context"

type adminKey struct{}

func WithAdmin(ctx context.Context, s *AdminSession) context.Context {
	return context.WithValue(ctx, adminKey{}, s)
}

// AdminFrom returns the admin session carried by ctx, if any.
func AdminFrom(ctx context.Context) (*AdminSession, bool) {
	s, ok := ctx.Value(adminKey{}).(*AdminSession)
	return s, ok && s != nil
}
