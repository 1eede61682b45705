// Package domain defines the data models and interfaces shared across the
// client: channel states and allocations, auth policies, wire envelopes,
// payroll records, and the contracts for stores, the chain and services.
// It contains plain types and interfaces only.
package domain
