// Package mcp provides an MCP (Model Context Protocol) server adapter
// for the case knowledge base. It lets AI assistants search the case
// record and retrieve documents over stdio or HTTP.
package mcp

import "errors"

// ErrMissingQuerier is returned when the query service is not provided.
var ErrMissingQuerier = errors.New("mcp: query service is required")
