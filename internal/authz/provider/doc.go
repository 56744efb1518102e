// Package provider supplies the context data part of a policy decision input.
//
// A Provider inspects an inbound request and returns a ContextData map. It
// never fails: malformed or missing input yields an empty or partial map and
// is counted in the context_extraction_failures_total metric. Providers that
// read the request body leave an identical, re-readable body in place for
// downstream handlers.
package provider
