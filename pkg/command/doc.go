// Package command provides the command-handling contracts of an
// event-sourced system and the dispatcher that drives them: a command is a
// request to change an entity, validated against the entity's current state,
// and its only legitimate output is a new event (or an error).
//
// Handler is the uniform contract: optional current state in, command in,
// one event out. Optional is the bootstrap-split variant for implementers —
// HandleFirst runs when the entity does not exist yet, HandleNext when it
// does, and neither ever checks for presence itself. FromOptional bridges a
// split implementation back to the uniform contract.
//
// Handlers never change state. State changes happen only when the returned
// event is applied through an aggregate.Aggregate, and nothing is durable
// until the event reaches a store; a handler call abandoned through context
// cancellation therefore leaves no trace.
//
// # Dispatcher
//
// Dispatcher ties the pieces together over an eventstore.Store:
//
//	dispatcher, err := command.NewDispatcher(
//	    store,
//	    codec,
//	    aggregate.FromOptional[Profile, ProfileEvent](ProfileEvents{}),
//	    command.FromOptional[Profile, ProfileCommand, ProfileEvent](ProfileHandlers{}),
//	)
//	event, err := dispatcher.Dispatch(ctx, "profile/42", RenameProfile{Name: "x"})
//
// Each Dispatch call reads the stream, folds it into state, runs the
// handler, and appends the produced event using the observed version as the
// optimistic concurrency check. Commands for the same stream are serialized
// by a per-stream lock; commands for different streams proceed in parallel.
// Errors from the handler, the transition fold and the store surface
// verbatim — the dispatcher performs no wrapping and no retries.
package command
