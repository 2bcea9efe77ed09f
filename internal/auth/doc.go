// Package auth implements authentication and role based authorization for the portal.
//
// # Login
//
// A login request is parsed into a Credential, which is either a LocalCredential
// (checked against the argon2id hash of a local account) or a DirectoryCredential
// (bound against the OpenLDAP or FreeIPA Directory it names). A successful directory
// login upserts a shadow user so roles have a local row to attach to. Both paths end
// in the same session issuance: every earlier token of the user is revoked and exactly
// one new bearer token is minted by the TokenIssuer.
//
// # Authorization
//
// The Gate answers Check(user, capability) for two capabilities: ManageSystem and
// AccessService(slugOrName). Before any capability rule runs the Gate asks whether
// the user holds the admin role; if so access is granted unconditionally.
//
// # Directories
//
// LDAPDirectory talks to a directory with go-ldap and a bounded timeout.
// NewBreakerDirectory wraps a Directory with a circuit breaker that only counts
// infrastructure faults; "not found" and "bind failed" are answers, not failures.
//
// Example usage:
//
//	svc := auth.NewService(db,
//	    auth.WithDirectory(auth.NewBreakerDirectory(openldap, 5, 30*time.Second)),
//	    auth.WithTokenExpiry(12*time.Hour),
//	)
//
//	cred, err := auth.NewCredential(models.SourceLocal, "admin", "secret")
//	session, err := svc.Login(ctx, cred)
//
//	app.Get("/admin/users",
//	    auth.RequireUser(svc),
//	    auth.RequireCapability(svc, auth.ManageSystem()),
//	    handler,
//	)
package auth
