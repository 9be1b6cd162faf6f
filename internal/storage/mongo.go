package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pfrederiksen/venue-events/internal/event"
)

// Collection names.
const (
	Collection         = "events"
	FeaturedCollection = "featured_events"
	RunsCollection     = "venue_runs"
)

const connectTimeout = 15 * time.Second

// MongoStore persists events in MongoDB.
type MongoStore struct {
	client   *mongo.Client
	coll     *mongo.Collection
	featured *mongo.Collection
	runs     *mongo.Collection
}

// NewMongo connects, pings and ensures indexes.
func NewMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		coll:     db.Collection(Collection),
		featured: db.Collection(FeaturedCollection),
		runs:     db.Collection(RunsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func indexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("id_unique"),
		},
		{
			Keys:    bson.D{{Key: "title", Value: 1}, {Key: "startDate", Value: 1}},
			Options: options.Index().SetName("title_start"),
		},
		{
			Keys:    bson.D{{Key: "venue.city", Value: 1}, {Key: "startDate", Value: 1}},
			Options: options.Index().SetName("city_start"),
		},
	}
}

func featuredIndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "eventId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("event_unique"),
		},
		{
			Keys:    bson.D{{Key: "order", Value: 1}},
			Options: options.Index().SetName("order"),
		},
	}
}

func runIndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "venue", Value: 1}, {Key: "at", Value: -1}},
			Options: options.Index().SetName("venue_at"),
		},
	}
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	if _, err := s.coll.Indexes().CreateMany(ctx, indexModels()); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}
	if _, err := s.featured.Indexes().CreateMany(ctx, featuredIndexModels()); err != nil {
		return fmt.Errorf("creating featured indexes: %w", err)
	}
	if _, err := s.runs.Indexes().CreateMany(ctx, runIndexModels()); err != nil {
		return fmt.Errorf("creating run indexes: %w", err)
	}
	return nil
}

// existsFilter matches on id or on the (title, startDate) pair.
func existsFilter(id, title string, start time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"id": id},
		bson.M{"title": title, "startDate": start},
	}}
}

// listFilter translates a Query into a MongoDB filter.
func listFilter(q Query) bson.M {
	filter := bson.M{}
	dates := bson.M{}
	if !q.From.IsZero() {
		dates["$gte"] = q.From
	}
	if !q.To.IsZero() {
		dates["$lte"] = q.To
	}
	if len(dates) > 0 {
		filter["startDate"] = dates
	}
	if len(q.Cities) > 0 {
		filter["venue.city"] = bson.M{"$in": regexes(q.Cities, false)}
	}
	if len(q.Venues) > 0 {
		filter["venue.name"] = bson.M{"$in": regexes(q.Venues, false)}
	}
	if len(q.Categories) > 0 {
		in := bson.M{"$in": regexes(q.Categories, true)}
		filter["$or"] = bson.A{
			bson.M{"category": in},
			bson.M{"categories": in},
		}
	}
	return filter
}

// regexes builds case-insensitive patterns for an $in clause. Anchored
// patterns match the whole value, others any substring.
func regexes(values []string, anchored bool) bson.A {
	out := make(bson.A, 0, len(values))
	for _, v := range values {
		pattern := regexp.QuoteMeta(v)
		if anchored {
			pattern = "^" + pattern + "$"
		}
		out = append(out, primitive.Regex{Pattern: pattern, Options: "i"})
	}
	return out
}

// updateFields builds the $set document for an Update.
func updateFields(u Update, now time.Time) bson.M {
	set := bson.M{"lastUpdated": now}
	if u.Title != nil {
		set["title"] = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Image != nil {
		set["image"] = *u.Image
	}
	return set
}

// Exists reports whether an event matches id, or title and start.
func (s *MongoStore) Exists(ctx context.Context, id, title string, start time.Time) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, existsFilter(id, title, start), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("checking existence: %w", err)
	}
	return n > 0, nil
}

// Insert adds evt. A duplicate key error maps to ErrDuplicate.
func (s *MongoStore) Insert(ctx context.Context, evt *event.Event) error {
	if _, err := s.coll.InsertOne(ctx, evt); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// Get returns the event with id.
func (s *MongoStore) Get(ctx context.Context, id string) (*event.Event, error) {
	var evt event.Event
	if err := s.coll.FindOne(ctx, bson.M{"id": id}).Decode(&evt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("finding event: %w", err)
	}
	return &evt, nil
}

// List returns matching events ordered by start date, then title.
func (s *MongoStore) List(ctx context.Context, q Query) ([]*event.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startDate", Value: 1}, {Key: "title", Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.coll.Find(ctx, listFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer cur.Close(ctx)

	events := make([]*event.Event, 0)
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decoding events: %w", err)
	}
	return events, nil
}

// Update applies u to the event with id and returns the stored result.
func (s *MongoStore) Update(ctx context.Context, id string, u Update) (*event.Event, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var evt event.Event
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": updateFields(u, time.Now().UTC())}, opts).Decode(&evt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("updating event: %w", err)
	}
	return &evt, nil
}

// DeleteMany removes every listed id and returns the deleted count.
func (s *MongoStore) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.coll.DeleteMany(ctx, bson.M{"id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("deleting events: %w", err)
	}
	return int(res.DeletedCount), nil
}

// ListFeatured returns the featured list ordered by position.
func (s *MongoStore) ListFeatured(ctx context.Context) ([]Featured, error) {
	cur, err := s.featured.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("listing featured events: %w", err)
	}
	defer cur.Close(ctx)

	featured := make([]Featured, 0)
	if err := cur.All(ctx, &featured); err != nil {
		return nil, fmt.Errorf("decoding featured events: %w", err)
	}
	return featured, nil
}

// AddFeatured appends eventID to the featured list.
func (s *MongoStore) AddFeatured(ctx context.Context, eventID string) (Featured, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"id": eventID}, options.Count().SetLimit(1))
	if err != nil {
		return Featured{}, fmt.Errorf("checking event: %w", err)
	}
	if n == 0 {
		return Featured{}, fmt.Errorf("%w: %s", ErrNotFound, eventID)
	}

	next := 0
	var last Featured
	err = s.featured.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "order", Value: -1}})).Decode(&last)
	switch {
	case err == nil:
		next = last.Order + 1
	case !errors.Is(err, mongo.ErrNoDocuments):
		return Featured{}, fmt.Errorf("reading featured order: %w", err)
	}

	entry := Featured{EventID: eventID, Order: next, AddedAt: time.Now().UTC()}
	if _, err := s.featured.InsertOne(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Featured{}, ErrAlreadyFeatured
		}
		return Featured{}, fmt.Errorf("adding featured event: %w", err)
	}
	return entry, nil
}

// RemoveFeatured drops eventID and renumbers the remaining entries.
func (s *MongoStore) RemoveFeatured(ctx context.Context, eventID string) error {
	res, err := s.featured.DeleteOne(ctx, bson.M{"eventId": eventID})
	if err != nil {
		return fmt.Errorf("removing featured event: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFeatured
	}

	remaining, err := s.ListFeatured(ctx)
	if err != nil {
		return err
	}
	for i, f := range remaining {
		if f.Order == i {
			continue
		}
		if _, err := s.featured.UpdateOne(ctx, bson.M{"eventId": f.EventID}, bson.M{"$set": bson.M{"order": i}}); err != nil {
			return fmt.Errorf("reordering featured events: %w", err)
		}
	}
	return nil
}

// RecordRun inserts run and deletes that venue's runs beyond keep.
func (s *MongoStore) RecordRun(ctx context.Context, run VenueRun, keep int) error {
	if _, err := s.runs.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	if keep <= 0 {
		return nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "at", Value: -1}}).
		SetSkip(int64(keep)).
		SetProjection(bson.M{"_id": 1})
	cur, err := s.runs.Find(ctx, bson.M{"venue": run.Venue}, opts)
	if err != nil {
		return fmt.Errorf("finding old runs: %w", err)
	}
	defer cur.Close(ctx)

	var old []bson.M
	if err := cur.All(ctx, &old); err != nil {
		return fmt.Errorf("decoding old runs: %w", err)
	}
	if len(old) == 0 {
		return nil
	}
	ids := make(bson.A, 0, len(old))
	for _, doc := range old {
		ids = append(ids, doc["_id"])
	}
	if _, err := s.runs.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("trimming runs: %w", err)
	}
	return nil
}

// Runs returns recorded runs for venue, or for every venue when empty.
func (s *MongoStore) Runs(ctx context.Context, venue string) ([]VenueRun, error) {
	filter := bson.M{}
	if venue != "" {
		filter["venue"] = venue
	}
	opts := options.Find().SetSort(bson.D{{Key: "venue", Value: 1}, {Key: "at", Value: 1}})
	cur, err := s.runs.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer cur.Close(ctx)

	runs := make([]VenueRun, 0)
	if err := cur.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("decoding runs: %w", err)
	}
	return runs, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
