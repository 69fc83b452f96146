package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection    = "users"
	sessionsCollection = "chat_sessions"
)

// MongoStore keeps one collection per entry kind plus users and chat_sessions.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

type entryDocument struct {
	ID         string    `bson:"_id"`
	OwnerID    string    `bson:"ownerId"`
	Kind       string    `bson:"kind"`
	RecordedAt time.Time `bson:"recordedAt"`
	CreatedAt  time.Time `bson:"createdAt"`
	Data       bson.Raw  `bson:"data"`
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection(sessionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "updatedAt", Value: -1}},
	})
	if err != nil {
		return err
	}
	for _, kind := range []Kind{KindMood, KindSymptom, KindWorkout, KindMeal, KindMetric, KindRoutine} {
		_, err := s.db.Collection(string(kind)).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "recordedAt", Value: -1}},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// User methods
func (s *MongoStore) CreateUser(ctx context.Context, user *User) error {
	_, err := s.db.Collection(usersCollection).InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*User, error) {
	var user User
	err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *MongoStore) UpdateUserSettings(ctx context.Context, id string, settings Settings, goals Goals, profile Profile) error {
	res, err := s.db.Collection(usersCollection).UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"settings": settings, "goals": goals, "profile": profile},
	})
	if err != nil {
		return fmt.Errorf("failed to update user settings: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Entry methods
func (s *MongoStore) CreateEntry(ctx context.Context, entry *Entry) error {
	doc, err := toEntryDocument(entry)
	if err != nil {
		return err
	}
	if _, err := s.db.Collection(string(entry.Kind)).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

func (s *MongoStore) GetEntry(ctx context.Context, kind Kind, ownerID, id string) (*Entry, error) {
	var doc entryDocument
	err := s.db.Collection(string(kind)).FindOne(ctx, bson.M{"_id": id, "ownerId": ownerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return fromEntryDocument(doc)
}

func (s *MongoStore) ListEntries(ctx context.Context, q EntryQuery) ([]Entry, error) {
	filter := entryListFilter(q)
	opts := options.Find().SetSort(bson.D{{Key: "recordedAt", Value: -1}, {Key: "createdAt", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.db.Collection(string(q.Kind)).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	var docs []entryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode entries: %w", err)
	}

	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		entry, err := fromEntryDocument(doc)
		if err != nil {
			log.Printf("Warning: skipping unreadable %s entry %s: %v", q.Kind, doc.ID, err)
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (s *MongoStore) UpdateEntryPayload(ctx context.Context, kind Kind, ownerID, id string, recordedAt time.Time, payload json.RawMessage) error {
	data, err := payloadToBSON(payload)
	if err != nil {
		return err
	}
	res, err := s.db.Collection(string(kind)).UpdateOne(ctx,
		bson.M{"_id": id, "ownerId": ownerID},
		bson.M{"$set": bson.M{"data": data, "recordedAt": NormalizeTime(recordedAt)}})
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteEntry(ctx context.Context, kind Kind, ownerID, id string) error {
	res, err := s.db.Collection(string(kind)).DeleteOne(ctx, bson.M{"_id": id, "ownerId": ownerID})
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func entryListFilter(q EntryQuery) bson.M {
	filter := bson.M{"ownerId": q.OwnerID}
	if !q.Since.IsZero() {
		filter["recordedAt"] = bson.M{"$gte": NormalizeTime(q.Since)}
	}
	return filter
}

func payloadToBSON(payload json.RawMessage) (bson.Raw, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON(payload, false, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert payload to bson: %w", err)
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload document: %w", err)
	}
	return bson.Raw(raw), nil
}

func toEntryDocument(entry *Entry) (entryDocument, error) {
	data, err := payloadToBSON(entry.Payload)
	if err != nil {
		return entryDocument{}, err
	}
	return entryDocument{
		ID:         entry.ID,
		OwnerID:    entry.OwnerID,
		Kind:       string(entry.Kind),
		RecordedAt: NormalizeTime(entry.RecordedAt),
		CreatedAt:  NormalizeTime(entry.CreatedAt),
		Data:       data,
	}, nil
}

func fromEntryDocument(doc entryDocument) (*Entry, error) {
	payload, err := bson.MarshalExtJSON(doc.Data, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to convert entry %s to json: %w", doc.ID, err)
	}
	return &Entry{
		ID:         doc.ID,
		OwnerID:    doc.OwnerID,
		Kind:       Kind(doc.Kind),
		RecordedAt: doc.RecordedAt.UTC(),
		CreatedAt:  doc.CreatedAt.UTC(),
		Payload:    json.RawMessage(payload),
	}, nil
}

// Chat session methods
func (s *MongoStore) GetChatSession(ctx context.Context, sessionID string) (*ChatSession, error) {
	var session ChatSession
	err := s.db.Collection(sessionsCollection).FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}
	if session.Messages == nil {
		session.Messages = []ChatMessage{}
	}
	return &session, nil
}

func (s *MongoStore) GetLastNChatMessages(ctx context.Context, sessionID string, n int) ([]ChatMessage, error) {
	if n <= 0 {
		return []ChatMessage{}, nil
	}
	var session ChatSession
	opts := options.FindOne().SetProjection(bson.M{"messages": bson.M{"$slice": -n}})
	err := s.db.Collection(sessionsCollection).FindOne(ctx, bson.M{"_id": sessionID}, opts).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []ChatMessage{}, nil
		}
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	return lastN(session.Messages, n), nil
}

// AppendChatMessages pushes msgs with a single upserting update, so
// concurrent turns on the same session are never lost. isActive is only
// set on insert, so an ended session stays ended.
func (s *MongoStore) AppendChatMessages(ctx context.Context, sessionID, ownerID string, msgs ...ChatMessage) (*ChatSession, error) {
	filter, update := chatAppendUpdate(sessionID, ownerID, time.Now(), msgs)
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var session ChatSession
	err := s.db.Collection(sessionsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&session)
	if err != nil {
		// The filter includes the owner, so an existing session of another
		// user makes the upsert collide on _id.
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrOwnerMismatch
		}
		return nil, fmt.Errorf("failed to append chat messages: %w", err)
	}
	return &session, nil
}

func chatAppendUpdate(sessionID, ownerID string, now time.Time, msgs []ChatMessage) (bson.M, bson.M) {
	now = NormalizeTime(now)
	normalized := make([]ChatMessage, len(msgs))
	for i, m := range msgs {
		m.Timestamp = NormalizeTime(m.Timestamp)
		normalized[i] = m
	}
	filter := bson.M{"_id": sessionID, "ownerId": ownerID}
	update := bson.M{
		"$push":        bson.M{"messages": bson.M{"$each": normalized}},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now, "isActive": true},
	}
	return filter, update
}

func (s *MongoStore) ListChatSessions(ctx context.Context, ownerID string) ([]ChatSession, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetProjection(bson.M{"messages": 0})
	cursor, err := s.db.Collection(sessionsCollection).Find(ctx, bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat sessions: %w", err)
	}
	sessions := []ChatSession{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode chat sessions: %w", err)
	}
	return sessions, nil
}

func (s *MongoStore) SetChatSessionActive(ctx context.Context, sessionID, ownerID string, active bool) error {
	res, err := s.db.Collection(sessionsCollection).UpdateOne(ctx,
		bson.M{"_id": sessionID, "ownerId": ownerID},
		bson.M{"$set": bson.M{"isActive": active, "updatedAt": NormalizeTime(time.Now())}})
	if err != nil {
		return fmt.Errorf("failed to update chat session: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
