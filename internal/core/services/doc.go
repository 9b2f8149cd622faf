// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The text heuristics (normalisation, classification, metadata
// extraction, chunking) are pure functions so they can be tested
// without any index or store.
package services
