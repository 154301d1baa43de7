// Package simpleupload accepts image and PDF uploads, places the bytes in a
// pluggable blob backend and records metadata in a pluggable repository,
// keeping the two consistent.
//
// A Service is built for one MediaPolicy (images or PDFs). It orders every
// operation so that a record never points at a file that was removed before
// its replacement was written:
//
//	Create: place file, create record (remove file if the record fails)
//	Update: place new file, repoint record (remove new file if that fails), remove old file
//	Delete: remove file, delete record (record kept if removal fails)
//
// Cleanup removals are best effort. Their failures leave orphaned files,
// which are logged, counted and found later by the Reconciler.
//
// Backends (memory, filesystem, S3, MinIO) and repositories (memory,
// Postgres, MongoDB, Redis-cached) live in subpackages.
package simpleupload
