// Package clearnode maintains the websocket to a clearing node and routes
// inbound frames to whoever is waiting for them.
//
// Routing
//
// Every inbound frame is decoded by rpc.Parse and offered to the registered
// one-shot waiters in registration order. The first waiter whose matcher
// accepts the envelope receives it and is removed. Broadcast kinds (transfer
// notices, channel and balance updates) are additionally delivered to every
// subscriber interested in that kind.
//
// Sending
//
// Dial returns before the socket is open. Frames sent while connecting are
// queued and written in order once the socket opens. Callers register their
// waiter before sending the request it awaits; Call does both.
//
// Failure
//
// A read or write error closes the connection. Every pending waiter fails
// with ErrClosed and later sends are refused. There is no reconnect.
package clearnode
