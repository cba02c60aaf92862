// Package agent implements the per-turn orchestrator: given a conversation
// history it drives the language model, executes any tool calls the model
// requests, folds results back into the model's working context, and emits
// an ordered stream of protocol events over a bounded channel.
package agent
