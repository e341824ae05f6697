// Package mongo implements persistence.Store against MongoDB, grounded on
// the collection-per-concern shape of the teacher's
// features/{session,run,runlog}/mongo stores (SPEC_FULL.md §C.1).
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/persistence"
	"github.com/chartrun/machine/serializer"
)

const (
	defaultOpTimeout = 5 * time.Second
)

// Store implements persistence.Store against a Mongo database, one
// collection per sub-store: sessions, turns, steps, messages.
type Store struct {
	sessions *mongodriver.Collection
	turns    *mongodriver.Collection
	steps    *mongodriver.Collection
	messages *mongodriver.Collection
	timeout  time.Duration
}

// Options configures New.
type Options struct {
	Client   *mongodriver.Client
	Database string
	Timeout  time.Duration
}

// New returns a Store backed by the given client/database, creating the
// indexes the query patterns below rely on.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	db := opts.Client.Database(opts.Database)
	s := &Store{
		sessions: db.Collection("agent_sessions"),
		turns:    db.Collection("agent_turns"),
		steps:    db.Collection("agent_steps"),
		messages: db.Collection("agent_messages"),
		timeout:  timeout,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.sessions.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := s.turns.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "turn_id", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := s.turns.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}},
	}); err != nil {
		return err
	}
	if _, err := s.steps.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "turn_id", Value: 1}, {Key: "index", Value: 1}},
	}); err != nil {
		return err
	}
	if _, err := s.messages.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "idempotency_key", Value: 1}},
		Options: options.Index().SetUnique(true).SetPartialFilterExpression(
			bson.D{{Key: "idempotency_key", Value: bson.D{{Key: "$exists", Value: true}}}},
		),
	}); err != nil {
		return err
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) Sessions() persistence.SessionStore { return sessionStore{s} }
func (s *Store) Turns() persistence.TurnStore       { return turnStore{s} }
func (s *Store) Steps() persistence.StepStore       { return stepStore{s} }
func (s *Store) Messages() persistence.MessageStore { return messageStore{s} }

type sessionDocument struct {
	SessionID     string    `bson:"session_id"`
	CurrentTurnID string    `bson:"current_turn_id,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func (d sessionDocument) toSession() persistence.Session {
	return persistence.Session{
		ID: d.SessionID, CurrentTurnID: d.CurrentTurnID,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type sessionStore struct{ s *Store }

func (ss sessionStore) CreateSession(ctx context.Context, id string, createdAt time.Time) (persistence.Session, error) {
	ctx, cancel := ss.s.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"session_id": id}
	update := bson.M{"$setOnInsert": bson.M{
		"session_id": id, "created_at": createdAt, "updated_at": createdAt,
	}}
	if _, err := ss.s.sessions.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true)); err != nil {
		return persistence.Session{}, err
	}
	return ss.GetSession(ctx, id)
}

func (ss sessionStore) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	ctx, cancel := ss.s.withTimeout(ctx)
	defer cancel()
	var doc sessionDocument
	if err := ss.s.sessions.FindOne(ctx, bson.M{"session_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, err
	}
	return doc.toSession(), nil
}

func (ss sessionStore) PatchSession(ctx context.Context, id string, currentTurnID string) (persistence.Session, error) {
	ctx, cancel := ss.s.withTimeout(ctx)
	defer cancel()
	update := bson.M{"$set": bson.M{"current_turn_id": currentTurnID, "updated_at": time.Now().UTC()}}
	if _, err := ss.s.sessions.UpdateOne(ctx, bson.M{"session_id": id}, update); err != nil {
		return persistence.Session{}, err
	}
	return ss.GetSession(ctx, id)
}

type turnDocument struct {
	TurnID     string                         `bson:"turn_id"`
	SessionID  string                         `bson:"session_id"`
	ParentID   string                         `bson:"parent_id,omitempty"`
	InstanceID string                         `bson:"instance_id"`
	Instance   serializer.SerializedInstance `bson:"instance"`
	Messages   []charter.Message              `bson:"messages,omitempty"`
	CreatedAt  time.Time                      `bson:"created_at"`
}

func fromTurn(t persistence.Turn) turnDocument {
	return turnDocument{
		TurnID: t.ID, SessionID: t.SessionID, ParentID: t.ParentID,
		InstanceID: t.InstanceID, Instance: t.Instance, Messages: t.Messages,
		CreatedAt: t.CreatedAt,
	}
}

func (d turnDocument) toTurn() persistence.Turn {
	return persistence.Turn{
		ID: d.TurnID, SessionID: d.SessionID, ParentID: d.ParentID,
		InstanceID: d.InstanceID, Instance: d.Instance, Messages: d.Messages,
		CreatedAt: d.CreatedAt,
	}
}

type turnStore struct{ s *Store }

func (ts turnStore) CreateTurn(ctx context.Context, t persistence.Turn) (persistence.Turn, error) {
	ctx, cancel := ts.s.withTimeout(ctx)
	defer cancel()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if _, err := ts.s.turns.InsertOne(ctx, fromTurn(t)); err != nil {
		return persistence.Turn{}, err
	}
	return t, nil
}

func (ts turnStore) GetTurn(ctx context.Context, id string) (persistence.Turn, error) {
	ctx, cancel := ts.s.withTimeout(ctx)
	defer cancel()
	var doc turnDocument
	if err := ts.s.turns.FindOne(ctx, bson.M{"turn_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return persistence.Turn{}, persistence.ErrNotFound
		}
		return persistence.Turn{}, err
	}
	return doc.toTurn(), nil
}

func (ts turnStore) ListTurnsBySession(ctx context.Context, sessionID string) ([]persistence.Turn, error) {
	ctx, cancel := ts.s.withTimeout(ctx)
	defer cancel()
	cur, err := ts.s.turns.Find(ctx, bson.M{"session_id": sessionID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []persistence.Turn
	for cur.Next(ctx) {
		var doc turnDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toTurn())
	}
	return out, cur.Err()
}

func (ts turnStore) PatchTurn(ctx context.Context, id string, inst serializer.SerializedInstance, messages []charter.Message) (persistence.Turn, error) {
	ctx, cancel := ts.s.withTimeout(ctx)
	defer cancel()
	update := bson.M{"$set": bson.M{"instance": inst, "messages": messages}}
	if _, err := ts.s.turns.UpdateOne(ctx, bson.M{"turn_id": id}, update); err != nil {
		return persistence.Turn{}, err
	}
	return ts.GetTurn(ctx, id)
}

type stepDocument struct {
	TurnID      string              `bson:"turn_id"`
	Index       int                 `bson:"index"`
	InstanceID  string              `bson:"instance_id"`
	YieldReason charter.YieldReason `bson:"yield_reason"`
	Response    string              `bson:"response,omitempty"`
	Done        bool                `bson:"done"`
	Messages    []charter.Message   `bson:"messages,omitempty"`
	CreatedAt   time.Time           `bson:"created_at"`
}

type stepStore struct{ s *Store }

func (ss stepStore) AddStep(ctx context.Context, st persistence.StepRecord) error {
	ctx, cancel := ss.s.withTimeout(ctx)
	defer cancel()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	_, err := ss.s.steps.InsertOne(ctx, stepDocument{
		TurnID: st.TurnID, Index: st.Index, InstanceID: st.InstanceID,
		YieldReason: st.YieldReason, Response: st.Response, Done: st.Done,
		Messages: st.Messages, CreatedAt: st.CreatedAt,
	})
	return err
}

func (ss stepStore) ListStepsByTurn(ctx context.Context, turnID string) ([]persistence.StepRecord, error) {
	ctx, cancel := ss.s.withTimeout(ctx)
	defer cancel()
	cur, err := ss.s.steps.Find(ctx, bson.M{"turn_id": turnID}, options.Find().SetSort(bson.D{{Key: "index", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []persistence.StepRecord
	for cur.Next(ctx) {
		var doc stepDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, persistence.StepRecord{
			TurnID: doc.TurnID, Index: doc.Index, InstanceID: doc.InstanceID,
			YieldReason: doc.YieldReason, Response: doc.Response, Done: doc.Done,
			Messages: doc.Messages, CreatedAt: doc.CreatedAt,
		})
	}
	return out, cur.Err()
}

type messageDocument struct {
	SessionID      string            `bson:"session_id"`
	TurnID         string            `bson:"turn_id,omitempty"`
	Message        charter.Message   `bson:"message"`
	IdempotencyKey string            `bson:"idempotency_key,omitempty"`
	CreatedAt      time.Time         `bson:"created_at"`
}

type messageStore struct{ s *Store }

func (ms messageStore) AddMessage(ctx context.Context, m persistence.MessageRecord) error {
	ctx, cancel := ms.s.withTimeout(ctx)
	defer cancel()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	doc := messageDocument{
		SessionID: m.SessionID, TurnID: m.TurnID, Message: m.Message,
		CreatedAt: m.CreatedAt,
	}
	if m.IdempotencyKey != "" {
		doc.IdempotencyKey = m.IdempotencyKey
	}
	_, err := ms.s.messages.InsertOne(ctx, doc)
	if mongodriver.IsDuplicateKeyError(err) {
		// Idempotent insert: a re-delivered external transcript entry with
		// the same (session_id, idempotency_key) is a no-op (§6 Messages
		// "idempotency keys for external-source transcripts").
		return nil
	}
	return err
}

func (ms messageStore) ListMessagesBySession(ctx context.Context, sessionID string) ([]persistence.MessageRecord, error) {
	return ms.queryMessages(ctx, bson.M{"session_id": sessionID})
}

func (ms messageStore) ListMessagesUpToTurn(ctx context.Context, sessionID, turnID string) ([]persistence.MessageRecord, error) {
	chain, err := persistence.TurnChain(ctx, ms.s.Turns(), turnID)
	if err != nil {
		return nil, err
	}
	return ms.queryMessages(ctx, bson.M{"session_id": sessionID, "turn_id": bson.M{"$in": chain}})
}

func (ms messageStore) queryMessages(ctx context.Context, filter bson.M) ([]persistence.MessageRecord, error) {
	ctx, cancel := ms.s.withTimeout(ctx)
	defer cancel()
	cur, err := ms.s.messages.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []persistence.MessageRecord
	for cur.Next(ctx) {
		var doc messageDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, persistence.MessageRecord{
			SessionID: doc.SessionID, TurnID: doc.TurnID, Message: doc.Message,
			IdempotencyKey: doc.IdempotencyKey, CreatedAt: doc.CreatedAt,
		})
	}
	return out, cur.Err()
}
