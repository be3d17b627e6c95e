// Package domain contains the core entities of the mnemo data layer:
// decks, flashcards, per-user card progress, study sessions, and users.
//
// Entities that participate in synchronization (Deck, Flashcard,
// CardProgress) carry a monotonic Version counter and a Tombstone
// soft-delete marker. Those two fields are the entire conflict-resolution
// contract between replicas: the server compares versions and the client
// garbage-collects tombstones delivered by a pull.
//
// Domain objects validate themselves but perform no I/O; persistence is
// the store package's concern.
package domain
