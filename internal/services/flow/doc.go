// Package flow runs the end-to-end payment: deposit into custody, get an
// open channel, fund it, pay the recipient and settle on-chain.
//
// Each step starts only after the previous one has been confirmed, either
// by a node reply or by a transaction receipt. The first failing step stops
// the flow and is reported as a *StepError.
package flow
