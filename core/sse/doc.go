// Package sse implements the text framing used on every transport of the
// result feed.
//
// A domain event is framed as:
//
//	event: update
//	id: 42
//	data: {"number":17,"color":"black"}
//
// followed by a blank line. Multi-line payloads use one data line per line.
// Snapshots sent to a freshly attached connection omit the id line.
//
// The synthetic connected signal and heartbeats are comment frames
// (": connected <message>" and ": heartbeat") so generic SSE parsers that
// only look at event/data frames skip them.
//
// Encode produces frames; Reader splits a byte stream into raw frames and
// Parse turns one raw frame into a stream.Event. Parse never panics on
// malformed input, it returns a *DecodeError instead.
package sse
