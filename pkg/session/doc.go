// Package session owns the connection lifecycle between one remote mixer and
// the local control surfaces.
//
// A Manager connects, runs a full sync, and then keeps the mirror current by
// applying remote events on one goroutine while Run turns surface actions
// into commands sent in order on another. Every Init tears down what came
// before and rebuilds the registry from scratch; an Init that is overtaken
// by a newer one returns ErrSuperseded and leaves the newer one's state and
// status alone. Observers follow the lifecycle through the EventBus returned
// by Events.
package session
