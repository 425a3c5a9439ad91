package storage

import "KoordeDHT/internal/domain"

// DataStore is the set of operations a node's local key-value store must
// support: point reads/writes, deletion, range queries over the ring arc a
// node is responsible for, and the bulk extract/absorb pair used when
// transferring keys during join and leave.
type DataStore interface {
	Store(resource domain.Resource)
	Get(id domain.ID) (domain.Resource, error)
	Delete(id domain.ID) error
	KeysInArc(from, to domain.ID) []domain.Resource
	Extract(keys []domain.ID) []domain.Resource
	Absorb(resources []domain.Resource)
	All() []domain.Resource
	Snapshot() []domain.Resource
	Len() int
	DebugLog()
}

var _ DataStore = (*Storage)(nil)
