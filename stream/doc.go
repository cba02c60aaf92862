// Package stream serializes orchestrator events into an ordered, framed,
// incrementally-consumable transport stream and reconstructs the same event
// sequence on the receiving side. Frames use the server-sent-events text
// format (an "event:" kind line, a "data:" JSON line, a blank separator) so
// any SSE-capable client can consume them; the decoder tolerates frames
// split across arbitrary transport boundaries.
package stream
