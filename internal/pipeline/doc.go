// Package pipeline runs the kinematics transforms over a batch of events.
//
// It is the composition point between ingestion (internal/event), the pure
// transforms (internal/kinematics) and the output table (internal/table).
// The transforms themselves never log; everything observable about a run is
// reported through the injected monitoring.Telemetry.
package pipeline
