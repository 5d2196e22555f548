// Package observable holds shared, mutable application data and notifies
// subscribers synchronously when an update cycle is committed.
//
// A single owner mutates the payload between BeginUpdate and Commit. Subscribers
// never observe intermediate state: they run only from Commit, in registration
// order, on the committing goroutine. A subscriber that fails, by returning an
// error or panicking, is reported to the ErrorReporter and does not prevent the
// remaining subscribers from running.
package observable
