// Package flux is the client-side state layer: a synchronous [Dispatcher], the stores
// reduced from its actions, and the action facades views call to change state.
//
// Data flows one way:
//
//	view -> PostActions/AuthActions -> Dispatcher -> PostStore/AuthStore -> listeners -> view
//
// Actions perform I/O on the caller's goroutine and report it as a request/success/failure
// triplet. Load and create absorb their errors into store state. Like, unlike, comment and
// delete dispatch the failure and also return the error so the caller can restore its controls.
package flux
