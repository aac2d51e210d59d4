// Package storage implements the persistence collaborators on top of an
// embedded BadgerDB. Records are JSON documents; keys are prefixed per record
// kind (msg:, user:, presence:).
package storage

import (
	"github.com/dgraph-io/badger/v4"
)

// Open opens (or creates) the document store at dir. Badger's own logger is
// silenced below ERROR; the server logs through zerolog.
func Open(dir string) (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
}
