package app

import "assetrepo/internal/database"

// Operation tracks a CLI operation against a repository. Operations are
// created in memory with ID=0. Only commands that write to the repository
// persist them in the history database.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Repository string
	AssetID    string
	Status     string
}

// NewOperation creates a new in-memory operation that will finish
// successfully unless Fail is called.
func NewOperation(operation, parameters, repository string) *Operation {
	return &Operation{
		Operation:  operation,
		Parameters: parameters,
		Repository: repository,
		Status:     database.StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation as finished with an error.
func (op *Operation) Fail() {
	op.Status = database.StatusError
}
