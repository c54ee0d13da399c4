// ABOUTME: Single-slot command mailbox implementing the controller/worker rendezvous
// ABOUTME: The worker waits on the slot's condvar when idle; the controller blocks on a notify channel inside Post
package worker

import "sync"

// mailbox is the worker-side half of the CommandMailbox protocol: a single
// Command slot guarded by the worker's own mutex, with a condvar the worker
// waits on when idle and a buffered "client notify" channel the controller
// blocks on inside Post.
//
// The controller writes only when the slot is NONE; the worker acknowledges
// by setting it back to NONE and sending on notify. This is the rendezvous:
// post, wait for NONE, post again.
type mailbox struct {
	cond    *sync.Cond // bound to the owning Worker's mu
	command Command
	notify  chan struct{}
}

func newMailbox(mu *sync.Mutex) *mailbox {
	return &mailbox{
		cond:   sync.NewCond(mu),
		notify: make(chan struct{}, 1),
	}
}

// post writes cmd into the slot and wakes the worker. Caller holds mu.
func (m *mailbox) post(cmd Command) {
	m.command = cmd
	m.cond.Signal()
}

// acknowledge clears the slot. Caller holds mu.
func (m *mailbox) acknowledge() {
	m.command = CmdNone
}

// notifyAck signals whoever is blocked in waitAck. This is a signal to the
// controller, so the caller must have released mu first, same as every
// other signal crossing the worker/controller boundary.
func (m *mailbox) notifyAck() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// waitAck blocks until the worker next calls notifyAck. Caller must not
// hold mu.
func (m *mailbox) waitAck() {
	<-m.notify
}
