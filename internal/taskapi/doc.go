// Package taskapi provides an HTTP client for the task backend API.
//
// # Overview
//
// This package is the only place taskdeck talks to the network. It builds
// request URLs from a base URL and a fixed endpoint registry, runs every
// call through one timeout and retry policy, and decodes JSON responses into
// the canonical task schema.
//
// # Architecture
//
//   - client.go: Client construction, options and typed endpoint methods
//   - request.go: Policy, Request and the attempt loop behind Do
//   - endpoints.go: Endpoint registry and identifier escaping
//   - errors.go: Error taxonomy (HTTPError, TimeoutError, NetworkError, ParseError)
//   - types.go: Task schema and request/response payloads
//
// # Client Usage
//
//	client, err := taskapi.NewClient("https://tasks.example.com",
//		taskapi.WithPolicy(taskapi.Policy{Timeout: 5 * time.Second, MaxRetries: 3, BaseDelay: time.Second}),
//	)
//	if err != nil {
//		log.Fatalf("failed to create client: %v", err)
//	}
//
//	tasks, err := client.ListTasks(ctx)
//	if err != nil {
//		log.Printf("list tasks failed: %v", err)
//	}
//
// # API Endpoints
//
//   - GET /api/health: Liveness probe (CheckHealth)
//   - GET /api/tasks: All tasks with count and timestamp
//   - GET /api/tasks/search?query=: Tasks matching name or assignee
//   - POST /api/tasks: Create a task
//   - PUT /api/tasks/{name}: Change a task's status
//   - DELETE /api/tasks/{name}: Remove a task
//   - POST /api/chat: Conversational assistant
//   - POST /api/ask: One-shot question
//   - GET /api/summary: AI-generated project summary
//
// Every path can be overridden through Endpoints. Task names are escaped as
// a single path segment, so names containing "/", "?" or spaces round-trip.
//
// # Retry Policy
//
// Each call makes at most Policy.MaxRetries attempts. Every attempt runs
// under its own Policy.Timeout deadline. Between attempts the client waits
// BaseDelay*attempt (1s, 2s, ... with the defaults).
//
// Only transport failures are retried:
//
//   - TimeoutError: the attempt's deadline fired first
//   - NetworkError: DNS failure, refused or reset connection, truncated body
//
// HTTPError (non-2xx status) and ParseError (2xx with malformed JSON) end
// the call immediately. The server answered, and asking again will not
// change the answer.
//
// POST is not idempotent. A POST is retried only when it carries an
// Idempotency-Key; CreateTask, SendChatMessage and Ask generate one per
// call, so all attempts of a call share the same key.
//
// # Health Checks
//
// CheckHealth never returns an error. Any failure is folded into
// Health{Status: "unavailable"} so polling loops need no error handling.
// The underlying error is kept in Health.Err for display.
//
// # Thread Safety
//
// A Client is immutable after NewClient and safe for concurrent use. Calls
// share nothing but the configuration; each owns its own deadline and
// attempt counter.
package taskapi
