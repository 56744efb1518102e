// Package health provides the liveness, health and readiness endpoints.
//
// Liveness only reports that the process serves HTTP. Readiness runs the
// registered dependency checks in parallel under a shared timeout. A
// failing critical check (the policy engine) makes the gate not ready. A
// failing non-critical check (the context provider store) reports
// degraded and stays ready, since context extraction failures are
// absorbed per request. Draining makes readiness fail so load balancers
// stop routing before shutdown.
package health
