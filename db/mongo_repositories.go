package db

import (
	"context"
	"fmt"
	"time"

	"travelwatch/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLoginHistoryRepository implements the LoginHistoryRepository interface
// for MongoDB. Unlike the SQLite backend it has no multi-statement
// transaction on a standalone server, so appends must be serialized through
// the DBManager to keep the per-user cap exact under concurrency.
type MongoLoginHistoryRepository struct {
	client     *mongo.Client
	database   string
	collection string
}

// loginDocument is the stored shape of a login record. The seq field is a
// lexicographically increasing insertion marker used to break ties between
// records that share an event timestamp.
type loginDocument struct {
	ID        string    `bson:"_id"`
	Seq       string    `bson:"seq"`
	User      string    `bson:"user"`
	IP        string    `bson:"ip"`
	Country   string    `bson:"country"`
	City      string    `bson:"city"`
	Latitude  float64   `bson:"latitude"`
	Longitude float64   `bson:"longitude"`
	Timestamp string    `bson:"timestamp"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d *loginDocument) toRecord() *models.LoginRecord {
	return &models.LoginRecord{
		User:      d.User,
		IP:        d.IP,
		Country:   d.Country,
		City:      d.City,
		Latitude:  d.Latitude,
		Longitude: d.Longitude,
		Timestamp: d.Timestamp,
		CreatedAt: d.CreatedAt,
	}
}

// NewMongoLoginHistoryRepository creates a new MongoLoginHistoryRepository
func NewMongoLoginHistoryRepository(client *mongo.Client, database, collection string) *MongoLoginHistoryRepository {
	return &MongoLoginHistoryRepository{
		client:     client,
		database:   database,
		collection: collection,
	}
}

func (r *MongoLoginHistoryRepository) coll() *mongo.Collection {
	return r.client.Database(r.database).Collection(r.collection)
}

// Close closes the MongoDB connection
func (r *MongoLoginHistoryRepository) Close() error {
	return r.client.Disconnect(context.Background())
}

// Append inserts a login record and evicts the oldest records beyond
// maxRecords for the user
func (r *MongoLoginHistoryRepository) Append(ctx context.Context, record *models.LoginRecord, maxRecords int) error {
	now := time.Now().UTC()
	doc := loginDocument{
		ID:        uuid.New().String(),
		Seq:       fmt.Sprintf("%020d", now.UnixNano()),
		User:      record.User,
		IP:        record.IP,
		Country:   record.Country,
		City:      record.City,
		Latitude:  record.Latitude,
		Longitude: record.Longitude,
		Timestamp: record.Timestamp,
		CreatedAt: now,
	}

	if _, err := r.coll().InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("error inserting login record: %w", err)
	}

	count, err := r.coll().CountDocuments(ctx, bson.M{"user": record.User})
	if err != nil {
		return fmt.Errorf("error counting login records: %w", err)
	}

	if count > int64(maxRecords) {
		if err := r.evictOldest(ctx, record.User, count-int64(maxRecords)); err != nil {
			return err
		}
	}

	return nil
}

// evictOldest removes n records for the user, oldest by event timestamp
// first, ties broken by insertion order.
func (r *MongoLoginHistoryRepository) evictOldest(ctx context.Context, user string, n int64) error {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}}).
		SetLimit(n).
		SetProjection(bson.M{"_id": 1})

	cursor, err := r.coll().Find(ctx, bson.M{"user": user}, opts)
	if err != nil {
		return fmt.Errorf("error selecting records to evict: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("error decoding eviction candidate: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("error iterating eviction candidates: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}

	if _, err := r.coll().DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("error evicting old login records: %w", err)
	}
	return nil
}

// MostRecent returns the login with the greatest event timestamp for the user
func (r *MongoLoginHistoryRepository) MostRecent(ctx context.Context, user string) (*models.LoginRecord, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "seq", Value: -1}})

	var doc loginDocument
	err := r.coll().FindOne(ctx, bson.M{"user": user}, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding most recent login: %w", err)
	}

	return doc.toRecord(), nil
}

// Recent returns up to limit logins for the user, newest first
func (r *MongoLoginHistoryRepository) Recent(ctx context.Context, user string, limit int) ([]*models.LoginRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "seq", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll().Find(ctx, bson.M{"user": user}, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying login history: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*models.LoginRecord
	for cursor.Next(ctx) {
		var doc loginDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding login record: %w", err)
		}
		records = append(records, doc.toRecord())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating login history: %w", err)
	}

	return records, nil
}

// PurgeAll deletes every login record and returns the prior total count
func (r *MongoLoginHistoryRepository) PurgeAll(ctx context.Context) (int64, error) {
	count, err := r.coll().CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("error counting login records: %w", err)
	}

	if _, err := r.coll().DeleteMany(ctx, bson.M{}); err != nil {
		return 0, fmt.Errorf("error purging login history: %w", err)
	}

	return count, nil
}

// Stats reports the total record count and distinct user count
func (r *MongoLoginHistoryRepository) Stats(ctx context.Context) (*models.StatsResponse, error) {
	total, err := r.coll().CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("error counting login records: %w", err)
	}

	users, err := r.coll().Distinct(ctx, "user", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("error counting distinct users: %w", err)
	}

	return &models.StatsResponse{
		TotalRecords: total,
		UniqueUsers:  int64(len(users)),
	}, nil
}
