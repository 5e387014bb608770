// Package services holds the helpers shared by the workflow and the provider
// backends it drives.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, scene indexes, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures as
//     validation, collaborator, composition, or resource problems.
//
// Use these helpers when wiring new pipeline steps so error handling and
// observability stay uniform across the render pipeline.
package services
