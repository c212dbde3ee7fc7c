// Package router parses inbound protocol strings and dispatches them.
//
// The wire grammar has two message forms:
//
//	command message:  "cell:command:args"  (only the first two ':' are structural)
//	event message:    {"event_name": "...", "payload": {...}}
//
// Arguments decode as JSON objects or lists when they look like one,
// otherwise they stay plain strings; decoding never fails. Replies are
// always strings: handler results on success, an error envelope
// {"error": kind, "message": detail} on any failure, and {"ok":true}
// after an accepted event message.
package router
