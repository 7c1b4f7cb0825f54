// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

/*
Package registry is the durable table of client identities behind the request gate.

# Storage

The registry file is a JSON array of identity records:

	[
	  {"id": 1, "name": "Acme", "contact": "ops@acme.com",
	   "credential": "9f86d081884c7d659a2feaa0c55ad015",
	   "requestsPerMinute": 60, "maxConcurrent": 5}
	]

Every mutation rewrites the whole file through a temp file in the same
directory that is fsynced and renamed over the original. When the rename
fails the content is copied in place and a warning is logged.

A sidecar file (<path>.meta) keeps the id high-water mark so ids of deleted
identities are never reissued, including across restarts.

# Failure Semantics

Mutations are applied in memory first. A failed write returns an error
matching ErrPersistence together with the mutated value; the in-memory state
is not rolled back. With the optional badger Journal, each mutation is
recorded before it is applied and replayed on the next Open if the file
write never completed.

# Concurrency

A single RWMutex guards the table. Reads run concurrently; mutations and
their file writes are serialized.
*/
package registry
