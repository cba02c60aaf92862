// Package model declares the normalized language-model interface consumed by
// the orchestrator, decoupling turn logic from provider SDKs. Provider
// adapters live in subpackages (openai, anthropic); a deterministic scripted
// implementation supports tests.
package model
