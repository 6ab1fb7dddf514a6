// Package streamapi exposes the broadcast registry over HTTP.
//
// Routes:
//
//	GET  /stream/:channel            server-sent events stream
//	GET  /ws/:channel                WebSocket stream, one SSE-framed block per text message
//	GET  /channel/:channel/snapshot  latest event framed with its id, 204 when there is none
//	POST /channel/:channel/publish   publish the request body as the next event
//	GET  /stats                      registry counters
//	GET  /health/live, /health/ready, /metrics
//
// Both stream endpoints start with a ": connected" comment followed by the
// channel snapshot, then deliver every published event in sequence order.
// Access control happens upstream, before a stream is opened.
package streamapi
