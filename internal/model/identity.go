package model

// Identity is the verified identity of a bearer-authenticated caller.
// It lives only for the duration of a request; nothing outside the
// request scope may hold on to the raw email.
type Identity struct {
	// Email is the verified email claim from the token.
	Email string
}
