package repository

import "database/sql"

// Store bundles the repositories backing the journey service
type Store struct {
	*VisitRepository
	*ServiceUsageRepository
	*LocationRepository
}

// NewStore creates all journey repositories over one database
func NewStore(db *sql.DB) *Store {
	return &Store{
		VisitRepository:        NewVisitRepository(db),
		ServiceUsageRepository: NewServiceUsageRepository(db),
		LocationRepository:     NewLocationRepository(db),
	}
}
