// Package api exposes the render queue over HTTP and provides the client the
// CLI uses to talk to it.
//
// # Routes
//
// Jobs are submitted with POST /api/jobs and inspected through
// /api/jobs/{id}/status. Live progress is a Server-Sent Events stream at
// /api/jobs/{id}/progress that ends after the terminal event; jobs that have
// already finished answer 410 with their final status. Finished videos are
// downloaded or deleted through /api/jobs/{id}/artifact.
//
// /api/tmp/{job}/{file} serves a processing job's temp media so renderers can
// fetch narration by URL. It and /api/health are reachable without the bearer
// token; everything else requires it when one is configured.
//
// # Wire types
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Errors are {"error": "...", "kind": "..."} with validation mapped to 400 and
// not-found to 404.
package api
