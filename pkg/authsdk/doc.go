/*
Package authsdk is the Go client for the Inkwell authentication service, and
the home of the request, response and error types the server speaks.

# Client vs Session

  - Client: public endpoints (register, sign in, password reset, health)
  - Session: everything that needs a bearer token, with transparent access
    token refresh

A typical sign in, with a second attempt when MFA is on:

	client := authsdk.NewClient("https://auth.example.com")

	session, err := client.Login(ctx, "alice@example.com", "Sup3r$ecret", "")
	if errors.Is(err, authsdk.ErrMFARequired) {
		session, err = client.Login(ctx, "alice@example.com", "Sup3r$ecret", otp)
	}

	me, err := session.Me(ctx)

# Errors

Every failed call returns an *APIError decoded from the response. Compare
with errors.Is against the exported values; only the code is compared:

	_, err := client.Register(ctx, req)
	switch {
	case errors.Is(err, authsdk.ErrDuplicateEmail):
	case errors.Is(err, authsdk.ErrValidation):
		var apiErr *authsdk.APIError
		errors.As(err, &apiErr)
		fmt.Println(apiErr.Fields)
	}

# Tokens

Access tokens are short lived bearer tokens. Refresh tokens are long lived
and are not rotated on use; Session.Logout revokes both. A Session is safe
for concurrent use.
*/
package authsdk
