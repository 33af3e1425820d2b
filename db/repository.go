package db

import (
	"context"
	"database/sql"
	"errors"

	"travelwatch/models"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable marks I/O-level storage failures. Callers use it to tell
	// a failed persistence apart from an ordinary decision-path outcome.
	ErrUnavailable = errors.New("storage unavailable")
)

// Repository defines a common interface for all repositories
type Repository interface {
	Close() error
}

// LoginHistoryRepository is the bounded per-user store of login observations.
type LoginHistoryRepository interface {
	Repository

	// Append inserts a record and then evicts the oldest records (by event
	// timestamp, ties by insertion order) until the user holds at most
	// maxRecords. Insert, count and eviction form one atomic unit.
	Append(ctx context.Context, record *models.LoginRecord, maxRecords int) error

	// MostRecent returns the observation with the greatest event timestamp
	// for the user, ties broken by latest insertion. Returns ErrNotFound
	// when the user has no history.
	MostRecent(ctx context.Context, user string) (*models.LoginRecord, error)

	// Recent returns up to limit observations for the user, newest first.
	Recent(ctx context.Context, user string, limit int) ([]*models.LoginRecord, error)

	// PurgeAll deletes every record across all users and returns the prior
	// total count.
	PurgeAll(ctx context.Context) (int64, error)

	// Stats reports the total record count and the number of distinct users.
	Stats(ctx context.Context) (*models.StatsResponse, error)
}

// RepositoryFactory creates repositories based on the configured backend
type RepositoryFactory struct {
	SQLiteDB    *sql.DB
	MongoClient *mongo.Client
	DBName      string
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(sqliteDB *sql.DB, mongoClient *mongo.Client, dbName string) *RepositoryFactory {
	return &RepositoryFactory{
		SQLiteDB:    sqliteDB,
		MongoClient: mongoClient,
		DBName:      dbName,
	}
}

// NewLoginHistoryRepository creates a login history repository for the
// configured backend, preferring SQLite when both are present.
func (f *RepositoryFactory) NewLoginHistoryRepository() LoginHistoryRepository {
	if f.SQLiteDB != nil {
		return NewSQLiteLoginHistoryRepository(f.SQLiteDB)
	}
	return NewMongoLoginHistoryRepository(f.MongoClient, f.DBName, "login_history")
}
