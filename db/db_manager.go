package db

import (
	"context"

	"travelwatch/models"
)

// Operation represents a database operation that needs to be executed
type Operation struct {
	Execute func() error
	Result  chan error
}

// OperationWithResult represents a database operation that returns a result
type OperationWithResult struct {
	Execute func() (interface{}, error)
	Result  chan OperationResult
}

// OperationResult contains the result of an operation
type OperationResult struct {
	Data  interface{}
	Error error
}

// DBManager serializes write access to the login history. Appends must go
// through it: the append-count-evict sequence is only atomic inside SQLite's
// transaction, and the Mongo backend has no equivalent on a standalone
// server, so the manager guarantees that two concurrent appends can never
// both observe a stale count and breach the per-user cap.
type DBManager struct {
	opQueue       chan Operation
	resultOpQueue chan OperationWithResult
	stopping      chan struct{}
}

// NewDBManager creates a new database manager
func NewDBManager() *DBManager {
	m := &DBManager{
		opQueue:       make(chan Operation, 100),
		resultOpQueue: make(chan OperationWithResult, 100),
		stopping:      make(chan struct{}),
	}

	// Start the worker goroutine
	go m.worker()

	return m
}

// worker processes operations one at a time
func (m *DBManager) worker() {
	for {
		select {
		case op := <-m.opQueue:
			err := op.Execute()
			op.Result <- err
		case op := <-m.resultOpQueue:
			data, err := op.Execute()
			op.Result <- OperationResult{Data: data, Error: err}
		case <-m.stopping:
			return
		}
	}
}

// ExecuteOperation executes a database operation on the serialized worker
func (m *DBManager) ExecuteOperation(execute func() error) error {
	resultChan := make(chan error, 1)
	m.opQueue <- Operation{
		Execute: execute,
		Result:  resultChan,
	}
	return <-resultChan
}

// ExecuteOperationWithResult executes a database operation that returns a
// result on the serialized worker
func (m *DBManager) ExecuteOperationWithResult(execute func() (interface{}, error)) (interface{}, error) {
	resultChan := make(chan OperationResult, 1)
	m.resultOpQueue <- OperationWithResult{
		Execute: execute,
		Result:  resultChan,
	}
	result := <-resultChan
	return result.Data, result.Error
}

// Stop stops the database manager
func (m *DBManager) Stop() {
	close(m.stopping)
}

// Methods for specific repository operations

// AppendLogin serializes the append-and-evict sequence
func (m *DBManager) AppendLogin(repo LoginHistoryRepository, ctx context.Context, record *models.LoginRecord, maxRecords int) error {
	return m.ExecuteOperation(func() error {
		return repo.Append(ctx, record, maxRecords)
	})
}

// PurgeAll serializes the full purge against in-flight appends
func (m *DBManager) PurgeAll(repo LoginHistoryRepository, ctx context.Context) (int64, error) {
	result, err := m.ExecuteOperationWithResult(func() (interface{}, error) {
		return repo.PurgeAll(ctx)
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}
