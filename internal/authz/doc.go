// Package authz is the authorization enforcement point.
//
// An Enforcer runs on every request after authentication. It reads the caller
// identity from the request context, asks a context data provider for
// request-derived facts, sends the resulting decision input to the external
// policy engine and either lets the request through or rejects it.
//
// Rejections are:
//
//	403 access denied         the policy denied the request
//	503 engine unavailable    the engine was unreachable or answered garbage
//	504 engine timeout        no decision within the configured timeout
//	499 client closed         the caller went away before a decision
//
// Engine failures are fail-closed unless Config.FailOpen is set. Verdicts are
// never cached; every request gets its own decision.
package authz
