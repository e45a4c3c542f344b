// Package dispatch runs the sender side of filerelay: it watches every
// outbound route's search directory, packs newly created files whose names
// match the route pattern, submits them to the destination party, and applies
// the route's post-send action once the peer has accepted the transfer.
//
// One goroutine owns the fsnotify watcher and handles events one at a time.
// A failed submission is logged and journaled; the loop keeps serving the
// other routes. There is no retry and no check that a writer has finished
// with a file before it is read.
package dispatch
