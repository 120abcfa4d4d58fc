// Package qrsession implements the cross-device rendezvous used by the QR checkout flow.
//
// A browser showing a QR code long-polls the server with the session id while the
// user scans the code and authorizes the payment on a phone. The phone's request is
// unrelated to the browser's connection; the two meet through the Registry.
//
// # lifecycle
//
//   - CreateSession is called when the QR code is displayed.
//   - MarkInProgress is called when the wallet is invoked (the browser then shows "authorizing").
//   - MarkReady is called after the orchestrator has persisted the result.
//   - the browser's next Poll returns PollSuccess and the session is removed.
//
// Sessions that nobody completes are evicted by a background sweeper after
// Config.MaxSession. The sweeper only runs while there are sessions to watch.
package qrsession
