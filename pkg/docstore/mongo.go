package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"autosnap/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	NodesCollection = "Nodes"
)

type node struct {
	ID        string    `bson:"_id"`
	Parent    string    `bson:"parent"`
	Key       string    `bson:"key"`
	Data      bson.M    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps every node of the tree as one document of the Nodes
// collection, keyed by its full path and indexed by its parent path.
type MongoStore struct {
	collection   *mongo.Collection
	readTimeout  time.Duration
	writeTimeout time.Duration
	log          *logger.Logger
}

func NewMongoStore(db *mongo.Database, readTimeout, writeTimeout time.Duration, log *logger.Logger) *MongoStore {
	return &MongoStore{
		collection:   db.Collection(NodesCollection),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		log:          log,
	}
}

// withTimeout bounds ctx by timeout unless the caller already set a tighter
// deadline.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *MongoStore) Get(ctx context.Context, p Path) (*Document, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, s.readTimeout)
	defer cancel()

	var n node
	err := s.collection.FindOne(ctx, bson.M{"_id": string(p)}).Decode(&n)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("failed to get %s: %w", p, err)
	}
	return &Document{Path: p, Data: plainFields(n.Data)}, nil
}

func (s *MongoStore) List(ctx context.Context, collection Path) ([]*Document, error) {
	if err := collection.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, s.readTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{"parent": string(collection)}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	docs := []*Document{}
	for cursor.Next(ctx) {
		var n node
		if err := cursor.Decode(&n); err != nil {
			s.log.Warn("Skipping undecodable node",
				"collection", collection,
				"id", cursor.Current.Lookup("_id").String(),
				"error", err,
			)
			continue
		}
		docs = append(docs, &Document{Path: Path(n.ID), Data: plainFields(n.Data)})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", collection, err)
	}
	return docs, nil
}

func (s *MongoStore) Set(ctx context.Context, p Path, data map[string]any) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := validateFields(data); err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, s.writeTimeout)
	defer cancel()

	n := node{
		ID:        string(p),
		Parent:    string(p.Parent()),
		Key:       p.Key(),
		Data:      bson.M(data),
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": n.ID}, n, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", p, err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, p Path, fields map[string]any) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := validateFields(fields); err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, s.writeTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}
	for k, v := range fields {
		set["data."+k] = v
	}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": string(p)}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", p, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, p Path) error {
	if err := p.Validate(); err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, s.writeTimeout)
	defer cancel()

	filter := bson.M{"$or": []bson.M{
		{"_id": string(p)},
		{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(string(p)) + "/"}},
	}}
	result, err := s.collection.DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return nil
}

// Watch opens a change stream restricted to the direct children of
// collection and re-reads the collection after every event. Change streams
// need a replica set or sharded cluster.
func (s *MongoStore) Watch(ctx context.Context, collection Path, fn Listener) (*Subscription, error) {
	if err := collection.Validate(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("docstore: nil listener")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"documentKey._id": bson.M{"$regex": "^" + regexp.QuoteMeta(string(collection)) + "/[^/]+$"},
		}}},
	}
	stream, err := s.collection.Watch(watchCtx, pipeline)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch %s: %w", collection, err)
	}

	initial, err := s.List(watchCtx, collection)
	if err != nil {
		cancel()
		_ = stream.Close(context.Background())
		return nil, err
	}

	sub := newSubscription(ctx, cancel)
	sub.deliver(fn, initial)

	go func() {
		defer stream.Close(context.Background())
		for stream.Next(watchCtx) {
			docs, err := s.List(watchCtx, collection)
			if err != nil {
				if watchCtx.Err() == nil {
					s.log.Error("Failed to reload watched collection", "collection", collection, "error", err)
				}
				continue
			}
			sub.deliver(fn, docs)
		}
		if err := stream.Err(); err != nil && watchCtx.Err() == nil {
			s.log.Error("Change stream stopped", "collection", collection, "error", err)
		}
	}()

	return sub, nil
}

// Ping checks connectivity of the underlying client.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.collection.Database().Client().Ping(ctx, nil)
}

func plainFields(m bson.M) Fields {
	out := make(Fields, len(m))
	for k, v := range m {
		out[k] = plain(v)
	}
	return out
}

// plain converts driver container types into the map/slice shapes the rest
// of the package works with.
func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		return map[string]any(plainFields(t))
	case map[string]any:
		return map[string]any(plainFields(bson.M(t)))
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item)
		}
		return out
	case int32:
		return int64(t)
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	default:
		return v
	}
}
