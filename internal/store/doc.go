// Package store defines the persistence abstractions of the data layer:
// a typed document collection per named collection, a predicate-based
// query model, sentinel errors, and a transaction helper.
//
// Collections are durable and survive process restart. The transaction
// helper is the only mechanism that guarantees atomicity across
// multi-record writes; "write entity and append outbox entry" must always
// happen inside one transaction, never as two separate calls.
package store
