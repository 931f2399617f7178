// Package driving declares what the CLI, HTTP API and MCP server may ask
// of the core: building stores and searching them. The services package
// implements these interfaces.
package driving
