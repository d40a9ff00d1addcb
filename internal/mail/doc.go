// Package mail composes and dispatches the test mails that trigger the
// pipeline under test.
//
// Each enabled test case becomes one multipart message (plain text plus an
// HTML alternative, optional attachments). Sends run concurrently under a
// bounded worker pool and are failure-isolated: one refused mail never
// affects the others, and results come back in test-case order.
package mail
