// Package core defines the shared protocol vocabulary of Skylight: the
// closed set of content parts exchanged with language models, the closed
// set of streaming events emitted while an assistant turn is produced, and
// identifier generation used to correlate tool calls with their results
// across asynchronous boundaries.
package core
