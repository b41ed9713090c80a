// Package orchestrator wires the definition loader, optional transformers
// and the renderer registry into a single Generate call.
package orchestrator
