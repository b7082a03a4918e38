// Package app provides the orchestration layer for the ExamTie client.
//
// # Overview
//
// This package wires together configuration, the API client, the state
// containers, and the UI to create the complete ExamTie terminal experience.
// It serves as the composition root where all dependencies are initialized
// and connected; no other package constructs more than its own collaborators.
//
// # Architecture
//
// The app package follows a simple initialization pattern:
//
//  1. Load configuration from .env / environment variables
//  2. Initialize the HTTP client for the ExamTie API, attaching the
//     persisted AI-provider headers to every request
//  3. Create the token store, role cache, and session container
//  4. Create the bookmark and streak caches and subscribe them to the
//     session so they load on login and clear on logout
//  5. Run the session startup sequence (token load + profile fetch)
//  6. Launch the background token validity poller
//  7. Start the TUI and block until the user exits or the context cancels
//
// # Components
//
//   - app.go: Main Run function and dependency wiring
//   - poller.go: Background goroutine that re-checks token validity
//
// # Polling Behavior
//
// The validity poller runs at a configurable interval (default: 30 minutes).
// On each tick it re-reads the persisted token record; a token that has
// lapsed since the last check logs the session out, which cascades through
// the session subscriptions to clear the bookmark and streak caches. The UI
// additionally triggers the same check whenever the terminal regains focus.
//
// # Error Handling
//
// Fatal errors (returned from Run): unreadable configuration, an invalid
// API base URL, and a state directory that cannot be created. Everything
// after startup is recoverable: failed fetches surface as error strings on
// the affected container and the next user action or poll retries.
//
// # Configuration
//
// The Options struct allows callers to customize:
//
//   - EnvPath: Path to a .env file (default: ./.env when present)
//   - PrefsPath: Overrides the preferences file location
//   - StateDir: Overrides the state directory holding token, role cache,
//     provider config, and the bookmark sync slot
//   - CheckEvery: Token validity check interval in minutes (default: 30)
package app
