package mcp

import (
	"github.com/custodia-labs/casekb/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Querier provides retrieval and document access.
	Querier driving.Querier

	// Analyzer provides derived analyses. Optional.
	Analyzer driving.Analyzer
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Querier == nil {
		return ErrMissingQuerier
	}
	// Analyzer is optional
	return nil
}
