// Package readapi serves the engine's read collaborators over HTTP and
// provides a Client that consumes them.
//
// The router exposes subscription configs and records, the global config,
// account existence, streams and resolved membership status under /v1. A
// missing value is a 404 with an ErrorResponse body; Client turns that back into
// the absent result the direct readers return, so membership.NewService and
// membership.NewStatusResolver run unchanged on either side:
//
//	r := chi.NewRouter()
//	r.Mount("/", readapi.NewRouter(records, streams, resolver,
//		readapi.WithCache(store, time.Minute),
//		readapi.WithLogger(log),
//	))
//
//	remote, _ := readapi.NewClient(readapi.ClientConfig{BaseURL: "http://membership-api"})
//	svc := membership.NewService(cfg, remote, streamService, submitter)
//
// Found records and streams are cached under the engine's own keys, so the
// invalidation that follows a join, renew or cancel also drops them here.
package readapi
