// Package domain defines the core business types for the PICC AR collections
// pipeline.
//
// Types in this package are pure value objects with no behavior beyond small
// pure methods. They are the shared language between the classifier, the
// resolver, the pipeline, the queue service, and the repositories.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Constants and enums belong here; Tier in particular is defined ONCE
//     here and consumed everywhere; no package redefines it
package domain
