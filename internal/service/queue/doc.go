// Package queue implements the draft review queue.
//
// Every generated draft enters the queue as pending and moves through an
// explicit lifecycle: pending to approved or rejected, approved to sent or
// failed. Sent is terminal. Nothing is emailed without an approval recorded
// here first.
//
// The service layer owns the transition rules and the audit log. It depends
// on the Store interface defined in this package; the Postgres
// implementation lives in repository/postgres/.
package queue
