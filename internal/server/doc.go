// Package server exposes the discovery engine over HTTP for other tools
// on the machine (dashboards, scripts, home-automation glue).
//
// Two endpoints are served:
//
//   - GET /api/hosts runs one blocking scan and returns the aggregated
//     hosts as JSON. Parameters: q (repeatable query name), type
//     (repeatable record type), window (seconds), retries, overlap.
//
//   - GET /ws upgrades to WebSocket. The client sends one scan request
//     as JSON; the server streams a "host" event per aggregated response
//     and finishes with a "done" event carrying the full mapping.
//
// The scan window clients may request is capped by Config.MaxWindow so a
// misbehaving client cannot pin a socket open indefinitely. The engine
// is injected through the Scanner interface, which tests satisfy with a
// fake.
package server
