package shared

import "context"

// Caller is the authenticated principal behind a request. Exactly one variant is
// resolved at the HTTP boundary; core services receive it already verified and
// never re-derive trust from request fields.
type Caller interface {
	isCaller()
}

// IdentityCaller is a registered user authenticated by an identity token.
type IdentityCaller struct {
	UserID string
}

// GuestCaller is an anonymous holder of a signed guest invitation.
type GuestCaller struct {
	OrgID        string
	CredentialID string
}

// VerifierCaller is a staff member holding an unlocked verifier session.
type VerifierCaller struct {
	StaffID  string
	OrgID    string
	UserID   string
	DeviceID string
}

func (IdentityCaller) isCaller() {}
func (GuestCaller) isCaller()    {}
func (VerifierCaller) isCaller() {}

type callerContextKey struct{}

// ContextWithCaller stores the resolved caller in context.
func ContextWithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, c)
}

// CallerFromContext extracts the caller from context, nil when absent.
func CallerFromContext(ctx context.Context) Caller {
	c, _ := ctx.Value(callerContextKey{}).(Caller)
	return c
}
