// internal/store/mongodb.go - MongoDB-backed document source and report store
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/etoile-yachts/MediaValidator/internal/media"
	"github.com/etoile-yachts/MediaValidator/internal/utils"
)

var mongoLogger = utils.NewComponentLogger("mongodb-store")

// MongoOptions defines MongoDB connection configuration.
type MongoOptions struct {
	ConnectionString string        `yaml:"connection_string" json:"connection_string"`
	Database         string        `yaml:"database" json:"database"`
	Timeout          time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	MaxPoolSize      int           `yaml:"max_pool_size,omitempty" json:"max_pool_size,omitempty"`
	MinPoolSize      int           `yaml:"min_pool_size,omitempty" json:"min_pool_size,omitempty"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time,omitempty" json:"max_conn_idle_time,omitempty"`
	RetryWrites      bool          `yaml:"retry_writes,omitempty" json:"retry_writes,omitempty"`
	RetryReads       bool          `yaml:"retry_reads,omitempty" json:"retry_reads,omitempty"`

	// ValidationReports and RepairReports name the collections reports
	// are persisted into.
	ValidationReports string `yaml:"validation_reports,omitempty" json:"validation_reports,omitempty"`
	RepairReports     string `yaml:"repair_reports,omitempty" json:"repair_reports,omitempty"`

	// ScanCollections restricts ListCollections; when empty, every
	// collection except the report collections is scannable.
	ScanCollections []string `yaml:"scan_collections,omitempty" json:"scan_collections,omitempty"`
}

// MongoStore implements DocumentSource and ReportStore over one
// MongoDB database.
type MongoStore struct {
	client  *mongo.Client
	db      *mongo.Database
	options MongoOptions
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.ConnectionString == "" {
		return nil, fmt.Errorf("MongoDB connection string is required")
	}
	if opts.Database == "" {
		return nil, fmt.Errorf("MongoDB database name is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxPoolSize == 0 {
		opts.MaxPoolSize = 100
	}
	if opts.MinPoolSize == 0 {
		opts.MinPoolSize = 5
	}
	if opts.MaxConnIdleTime == 0 {
		opts.MaxConnIdleTime = 10 * time.Minute
	}
	if opts.ValidationReports == "" {
		opts.ValidationReports = "media_validation_reports"
	}
	if opts.RepairReports == "" {
		opts.RepairReports = "media_repair_reports"
	}

	clientOptions := options.Client().
		ApplyURI(opts.ConnectionString).
		SetMaxPoolSize(uint64(opts.MaxPoolSize)).
		SetMinPoolSize(uint64(opts.MinPoolSize)).
		SetMaxConnIdleTime(opts.MaxConnIdleTime).
		SetRetryWrites(opts.RetryWrites).
		SetRetryReads(opts.RetryReads)

	connectCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(connectCtx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	mongoLogger.Infof("Connected to MongoDB database %s", opts.Database)

	return &MongoStore{
		client:  client,
		db:      client.Database(opts.Database),
		options: opts,
	}, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// ListCollections returns the scannable collection names.
func (s *MongoStore) ListCollections(ctx context.Context) ([]string, error) {
	if len(s.options.ScanCollections) > 0 {
		return append([]string(nil), s.options.ScanCollections...), nil
	}

	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	scannable := make([]string, 0, len(names))
	for _, name := range names {
		if name == s.options.ValidationReports || name == s.options.RepairReports {
			continue
		}
		scannable = append(scannable, name)
	}
	return scannable, nil
}

// ListDocumentIDs pages document IDs ordered by _id; the cursor is the
// last ID of the previous page.
func (s *MongoStore) ListDocumentIDs(ctx context.Context, collection string, limit int, cursor string) ([]string, string, error) {
	if limit <= 0 {
		limit = 100
	}

	filter := bson.M{}
	if cursor != "" {
		filter["_id"] = bson.M{"$gt": cursor}
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"_id": 1})

	cur, err := s.db.Collection(collection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list document IDs in %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, "", fmt.Errorf("failed to decode document ID: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, "", fmt.Errorf("cursor error listing %s: %w", collection, err)
	}

	nextCursor := ""
	if len(ids) == limit {
		nextCursor = ids[len(ids)-1]
	}
	return ids, nextCursor, nil
}

// GetDocument fetches one document as a raw payload.
func (s *MongoStore) GetDocument(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewErrorf(utils.ErrCodeNotFound, "document %s/%s not found", collection, id)
		}
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	return normalizeBSON(doc), nil
}

// UpdateDocumentFields applies a partial multi-path update in one call.
func (s *MongoStore) UpdateDocumentFields(ctx context.Context, collection, id string, updates map[string]interface{}) error {
	set := bson.M{}
	for path, value := range updates {
		set[utils.MongoFieldPath(path)] = value
	}

	_, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	return nil
}

// UpdateDocumentFieldsIf applies updates only when every condition path
// still holds its expected value, in a single conditional UpdateOne.
func (s *MongoStore) UpdateDocumentFieldsIf(ctx context.Context, collection, id string, updates, conditions map[string]interface{}) (bool, error) {
	filter := bson.M{"_id": id}
	for path, expected := range conditions {
		filter[utils.MongoFieldPath(path)] = expected
	}

	set := bson.M{}
	for path, value := range updates {
		set[utils.MongoFieldPath(path)] = value
	}

	result, err := s.db.Collection(collection).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed conditional update of %s/%s: %w", collection, id, err)
	}
	return result.MatchedCount > 0, nil
}

// SaveValidationReport persists a validation report and returns its ID.
func (s *MongoStore) SaveValidationReport(ctx context.Context, report *media.ValidationReport) (string, error) {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	_, err := s.db.Collection(s.options.ValidationReports).InsertOne(ctx, report)
	if err != nil {
		return "", fmt.Errorf("failed to save validation report: %w", err)
	}
	return report.ID, nil
}

// GetValidationReport loads a validation report by ID.
func (s *MongoStore) GetValidationReport(ctx context.Context, id string) (*media.ValidationReport, error) {
	var report media.ValidationReport
	err := s.db.Collection(s.options.ValidationReports).FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewErrorf(utils.ErrCodeNotFound, "validation report %s not found", id)
		}
		return nil, fmt.Errorf("failed to get validation report %s: %w", id, err)
	}
	return &report, nil
}

// ListValidationReports pages validation reports, newest first.
func (s *MongoStore) ListValidationReports(ctx context.Context, page, pageSize int) ([]*media.ValidationReport, error) {
	var reports []*media.ValidationReport
	err := s.listReports(ctx, s.options.ValidationReports, "start_time", page, pageSize, func(cur *mongo.Cursor) error {
		var report media.ValidationReport
		if err := cur.Decode(&report); err != nil {
			return err
		}
		reports = append(reports, &report)
		return nil
	})
	return reports, err
}

// SaveRepairReport persists a repair report and returns its ID.
func (s *MongoStore) SaveRepairReport(ctx context.Context, report *media.RepairReport) (string, error) {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	_, err := s.db.Collection(s.options.RepairReports).InsertOne(ctx, report)
	if err != nil {
		return "", fmt.Errorf("failed to save repair report: %w", err)
	}
	return report.ID, nil
}

// GetRepairReport loads a repair report by ID.
func (s *MongoStore) GetRepairReport(ctx context.Context, id string) (*media.RepairReport, error) {
	var report media.RepairReport
	err := s.db.Collection(s.options.RepairReports).FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewErrorf(utils.ErrCodeNotFound, "repair report %s not found", id)
		}
		return nil, fmt.Errorf("failed to get repair report %s: %w", id, err)
	}
	return &report, nil
}

// ListRepairReports pages repair reports, newest first.
func (s *MongoStore) ListRepairReports(ctx context.Context, page, pageSize int) ([]*media.RepairReport, error) {
	var reports []*media.RepairReport
	err := s.listReports(ctx, s.options.RepairReports, "timestamp", page, pageSize, func(cur *mongo.Cursor) error {
		var report media.RepairReport
		if err := cur.Decode(&report); err != nil {
			return err
		}
		reports = append(reports, &report)
		return nil
	})
	return reports, err
}

func (s *MongoStore) listReports(ctx context.Context, collection, sortField string, page, pageSize int, decode func(*mongo.Cursor) error) error {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: sortField, Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cur, err := s.db.Collection(collection).Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		if err := decode(cur); err != nil {
			return fmt.Errorf("failed to decode report: %w", err)
		}
	}
	return cur.Err()
}

// normalizeBSON converts decoded BSON containers into the plain
// map/slice shapes the extractor traverses.
func normalizeBSON(value interface{}) map[string]interface{} {
	normalized, _ := normalizeBSONValue(value).(map[string]interface{})
	return normalized
}

func normalizeBSONValue(value interface{}) interface{} {
	switch v := value.(type) {
	case bson.M:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = normalizeBSONValue(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = normalizeBSONValue(item)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(v))
		for _, e := range v {
			out[e.Key] = normalizeBSONValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalizeBSONValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalizeBSONValue(item)
		}
		return out
	default:
		return v
	}
}
