// Package channel drives payment channels through their lifecycle:
//
//	absent --get_channels--> open (reuse)
//	absent --create_channel--> pending-create --on-chain create--> open
//	open --resize_channel--> pending-resize --channel-resized--> open
//	open --close_channel--> pending-close --on-chain close--> closed
//
// The local copy of a channel only advances on a confirmed node reply or a
// successful on-chain receipt. A failed step puts the channel back in the
// status it had before the step started.
//
// Closing is finalized on one path only: the caller of Close waits for the
// node's co-signed final state and submits it on-chain itself. A second
// Close for the same channel while one is running fails with
// ErrAlreadySettling.
package channel
