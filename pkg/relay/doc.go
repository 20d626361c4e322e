// Package relay provides an embeddable TPMS relay.
//
// A relay reads demodulated OOK bit rows from a capture source, decodes
// them as Schrader tire pressure sensor transmissions and keeps the latest
// reading of each sensor in a bounded retransmission queue. Every queued
// reading is re-sent a fixed number of times at a fixed interval through a
// Sender, for example a serial-attached transmitter.
//
// # Basic Usage
//
//	r, err := relay.New(relay.Config{CaptureDir: "/var/spool/tpms"},
//	    relay.WithSender(mySender),
//	    relay.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := r.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Stop()
//
// # Events
//
// Implement [EventHandler], embedding [BaseEventHandler] for the events you
// do not need, and pass it via [WithEventHandler]. Handlers run on the
// scheduling goroutine.
//
// # Plugins
//
// A [Plugin] shares the relay's lifetime and receives a [StatusReader] for
// the queue. See the plugins directory for spool cleanup and the HTTP
// status server.
//
// # Lifecycle States
//
// A Relay is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] or [StateCrashed]. Use [Relay.Status] to query it.
package relay
