// Package aggregate provides the state-transition contracts for event-sourced
// entities: the current state of an entity is never stored directly, it is
// derived by folding the entity's past events through a pure transition
// function.
//
// The package revolves around two interfaces. Aggregate is the uniform
// contract a dispatcher calls: one optional previous state in, one event in,
// the next optional state out. Optional is the bootstrap-split variant for
// implementers: ApplyFirst handles the very first event of an entity's life,
// ApplyNext handles every later one, and neither ever sees an "am I absent?"
// check. FromOptional bridges the two, so a split implementation can be used
// anywhere the uniform contract is expected.
//
// Fold replays an event sequence into a state, and Root adds the bookkeeping
// a load-fold-handle-persist cycle needs: version tracking and a buffer of
// events recorded but not yet flushed to a store.
//
// # Usage
//
//	type Profile struct {
//	    Name string
//	}
//
//	type ProfileEvents struct{}
//
//	func (ProfileEvents) ApplyFirst(event ProfileEvent) (Profile, error) {
//	    created, ok := event.(ProfileCreated)
//	    if !ok {
//	        return Profile{}, fmt.Errorf("profile does not exist yet")
//	    }
//	    return Profile{Name: created.Name}, nil
//	}
//
//	func (ProfileEvents) ApplyNext(state Profile, event ProfileEvent) (Profile, error) {
//	    switch e := event.(type) {
//	    case ProfileRenamed:
//	        state.Name = e.Name
//	        return state, nil
//	    }
//	    return Profile{}, fmt.Errorf("unexpected event %T", event)
//	}
//
//	agg := aggregate.FromOptional[Profile, ProfileEvent](ProfileEvents{})
//	state, err := aggregate.Fold(agg, nil, events...)
//
// # Guarantees
//
// Apply is deterministic and side-effect free: the same (previous, event)
// pair always yields the same result, and a failed transition leaves the
// previous state untouched. Once a transition has produced a present state,
// no later successful transition returns to absent. Distinct entities can be
// folded concurrently without coordination because every call owns its
// inputs exclusively.
package aggregate
