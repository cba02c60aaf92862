// Package skylight provides a high-level façade over the agent orchestrator
// and its services (tool registry, session store, logging) enabling rapid
// construction of a streaming tool-calling assistant. Most applications
// interact with this package by:
//  1. Creating a Skylight via New() with a model provider
//  2. Registering one or more tools
//  3. Chatting asynchronously (Chat) or synchronously (ChatSync)
//
// The façade delegates turn execution to agent.Orchestrator while keeping
// setup and usage ergonomics concise. All defaults are safe for local
// development and testing.
package skylight

import (
	"context"

	"github.com/skylightai/skylight/agent"
	"github.com/skylightai/skylight/core"
	"github.com/skylightai/skylight/logging"
	"github.com/skylightai/skylight/model"
	"github.com/skylightai/skylight/session"
	"github.com/skylightai/skylight/tool"
)

// Options configures the Skylight instance.
type Options struct {
	// Name identifies the assistant in logs.
	Name string

	// Instruction overrides the default system instruction.
	Instruction string

	// AgentOptions tunes the underlying orchestrator (model call limit,
	// event buffering, tool timeout).
	AgentOptions []func(o *agent.Options)

	// Store holds conversation history. Defaults to in-memory.
	Store *session.InMemoryStore

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Skylight is the high-level façade aggregating the orchestrator and its
// services.
type Skylight struct {
	registry     *tool.Registry
	orchestrator *agent.Orchestrator
	store        *session.InMemoryStore
}

// New creates a Skylight over the given model with optional overrides.
func New(m model.Model, optFns ...func(o *Options)) *Skylight {
	opts := Options{
		Name:   "skylight",
		Store:  session.NewInMemoryStore(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry := tool.NewRegistry(opts.Logger)

	agentOpts := append([]func(o *agent.Options){func(o *agent.Options) {
		if opts.Instruction != "" {
			o.Instruction = opts.Instruction
		}
		o.Logger = opts.Logger
	}}, opts.AgentOptions...)

	return &Skylight{
		registry:     registry,
		orchestrator: agent.New(opts.Name, m, registry, agentOpts...),
		store:        opts.Store,
	}
}

// RegisterTool adds a tool to the registry. Tools registered after turns have
// started become visible to subsequent turns.
func (s *Skylight) RegisterTool(t tool.Tool) error { return s.registry.Register(t) }

// MustRegisterTool registers a tool and panics on failure. Intended for
// static wiring at startup.
func (s *Skylight) MustRegisterTool(t tool.Tool) { s.registry.MustRegister(t) }

// Orchestrator exposes the underlying orchestrator for callers that manage
// their own transport, e.g. the HTTP server.
func (s *Skylight) Orchestrator() *agent.Orchestrator { return s.orchestrator }

// Store exposes the session store.
func (s *Skylight) Store() *session.InMemoryStore { return s.store }

// Chat runs one turn of the named session, persisting the user message and
// everything the turn folds into model context. The returned channels close
// when the turn completes.
func (s *Skylight) Chat(ctx context.Context, sessionID, message string) (<-chan core.Event, <-chan error, error) {
	history, err := s.store.History(sessionID)
	if err != nil {
		return nil, nil, err
	}

	userContent := core.NewUserText(message)
	if err := s.store.Append(sessionID, userContent); err != nil {
		return nil, nil, err
	}
	history = append(history, userContent)

	events, errs := s.orchestrator.Run(ctx, history, func(o *agent.RunOptions) {
		o.OnContent = func(c core.Content) {
			// Best effort: the in-memory store cannot fail here.
			_ = s.store.Append(sessionID, c)
		}
	})
	return events, errs, nil
}

// ChatSync is a synchronous helper that drains the async channels and
// returns the accumulated events.
func (s *Skylight) ChatSync(ctx context.Context, sessionID, message string) ([]core.Event, error) {
	eventsCh, errsCh, err := s.Chat(ctx, sessionID, message)
	if err != nil {
		return nil, err
	}

	var events []core.Event
	for {
		select {
		case <-ctx.Done():
			return events, ctx.Err()

		case ev, ok := <-eventsCh:
			if !ok {
				select {
				case err := <-errsCh:
					return events, err
				default:
					return events, nil
				}
			}
			events = append(events, ev)

		case err := <-errsCh:
			if err != nil {
				return events, err
			}
		}
	}
}
