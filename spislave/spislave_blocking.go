// spislave/spislave_blocking.go

package spislave

import "context"

// Readable returns a coalesced notification sent by the event handler after
// it buffers a word. Callers must re-check Receive after waking.
func (d *Driver[W]) Readable() <-chan struct{} { return d.notify }

// Done returns a coalesced notification sent when a stream finishes.
// Callers must re-check TransferComplete after waking.
func (d *Driver[W]) Done() <-chan struct{} { return d.txNotify }

// ReceiveContext blocks until a word is available, ctx is done, or the
// driver is disabled.
func (d *Driver[W]) ReceiveContext(ctx context.Context) (W, error) {
	closed := d.closedChan()
	for {
		if w, ok := d.Receive(); ok {
			return w, nil
		}
		d.dbgReadWait()
		select {
		case <-d.notify:
			// re-check; the notify is coalesced and may be stale
		case <-closed:
			return 0, ErrClosed
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// WaitTransferComplete blocks until no stream is in flight.
func (d *Driver[W]) WaitTransferComplete(ctx context.Context) error {
	closed := d.closedChan()
	for {
		if d.TransferComplete() {
			return nil
		}
		select {
		case <-d.txNotify:
		case <-closed:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SendManyContext waits for any running stream to finish, then starts words.
// It returns once the stream has started, not when it has been clocked out.
func (d *Driver[W]) SendManyContext(ctx context.Context, words []W) error {
	for {
		if err := d.WaitTransferComplete(ctx); err != nil {
			return err
		}
		if err := d.SendMany(words); err != ErrBusy {
			return err
		}
	}
}
