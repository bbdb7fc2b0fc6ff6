package app

import (
	"testing"

	"assetrepo/internal/database"
)

func TestNewOperation(t *testing.T) {
	tests := []struct {
		name       string
		operation  string
		parameters string
		repository string
	}{
		{
			name:       "with parameters",
			operation:  "AddAsset",
			parameters: "feature.json",
			repository: "local",
		},
		{
			name:      "empty parameters",
			operation: "DeleteAsset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation(tt.operation, tt.parameters, tt.repository)

			if op.Operation != tt.operation {
				t.Errorf("Operation = %q, want %q", op.Operation, tt.operation)
			}
			if op.Parameters != tt.parameters {
				t.Errorf("Parameters = %q, want %q", op.Parameters, tt.parameters)
			}
			if op.Repository != tt.repository {
				t.Errorf("Repository = %q, want %q", op.Repository, tt.repository)
			}
			if op.Status != database.StatusSuccess {
				t.Errorf("Status = %q, want %q", op.Status, database.StatusSuccess)
			}
			if op.ID != 0 {
				t.Errorf("ID = %d, want 0", op.ID)
			}
		})
	}
}

func TestOperation_Fail(t *testing.T) {
	op := NewOperation("UpdateState", "", "")
	op.Fail()
	if op.Status != database.StatusError {
		t.Errorf("Status = %q, want %q", op.Status, database.StatusError)
	}
}

func TestOperation_Persisted(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		want bool
	}{
		{name: "not persisted when ID is 0", id: 0, want: false},
		{name: "persisted when ID is positive", id: 1, want: true},
		{name: "persisted when ID is large", id: 99999, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := &Operation{ID: tt.id}
			if got := op.Persisted(); got != tt.want {
				t.Errorf("Persisted() = %v, want %v", got, tt.want)
			}
		})
	}
}
