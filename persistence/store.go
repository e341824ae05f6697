// Package persistence declares the storage-adapter contract consumed by
// the runtime's external collaborator described in spec §1/§6: session
// roots, turn chains, per-step snapshots, and the user-facing message log.
// The runtime core never depends on a concrete implementation; callers
// inject one of persistence/memory or persistence/mongo (or their own).
package persistence

import (
	"context"
	"time"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/serializer"
)

type (
	// Session is the durable root a turn chain hangs off: `currentTurnId`
	// is the time-travel pointer described in §4.7/§8 scenario S6.
	Session struct {
		ID            string
		CurrentTurnID string
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// Turn is one persisted invocation of the machine loop, chained to its
	// parent to form the forest §3 invariant 6 describes: "parentId chains
	// for turns form a forest; time-travel only moves the pointer, never
	// prunes."
	Turn struct {
		ID         string
		SessionID  string
		ParentID   string // empty for the root turn
		InstanceID string
		Instance   serializer.SerializedInstance
		Messages   []charter.Message
		CreatedAt  time.Time
	}

	// StepRecord is one persisted Step snapshot within a turn (§3 Step, §6
	// "steps.{add, list-by-turn}").
	StepRecord struct {
		TurnID      string
		Index       int
		InstanceID  string
		YieldReason charter.YieldReason
		Response    string
		Done        bool
		Messages    []charter.Message
		CreatedAt   time.Time
	}

	// MessageRecord is one entry in the session's user-facing chat log,
	// distinct from Turn.Messages: it's the flattened, cross-turn
	// transcript a UI/voice frontend renders (§6 "messages.{add,
	// list-by-session, list-up-to-turn}"). IdempotencyKey lets external
	// transcript sources (e.g. a voice gateway re-delivering the same
	// utterance) be added without duplicating entries.
	MessageRecord struct {
		SessionID      string
		TurnID         string
		Message        charter.Message
		IdempotencyKey string
		CreatedAt      time.Time
	}
)

type (
	// SessionStore implements `sessions.{create, get, patch}` (§6).
	SessionStore interface {
		CreateSession(ctx context.Context, id string, createdAt time.Time) (Session, error)
		GetSession(ctx context.Context, id string) (Session, error)
		PatchSession(ctx context.Context, id string, currentTurnID string) (Session, error)
	}

	// TurnStore implements `turns.{create, get, list-by-session, patch}` (§6).
	TurnStore interface {
		CreateTurn(ctx context.Context, t Turn) (Turn, error)
		GetTurn(ctx context.Context, id string) (Turn, error)
		ListTurnsBySession(ctx context.Context, sessionID string) ([]Turn, error)
		PatchTurn(ctx context.Context, id string, inst serializer.SerializedInstance, messages []charter.Message) (Turn, error)
	}

	// StepStore implements `steps.{add, list-by-turn}` (§6).
	StepStore interface {
		AddStep(ctx context.Context, s StepRecord) error
		ListStepsByTurn(ctx context.Context, turnID string) ([]StepRecord, error)
	}

	// MessageStore implements `messages.{add, list-by-session,
	// list-up-to-turn}` (§6). AddMessage is idempotent on
	// (SessionID, IdempotencyKey) when IdempotencyKey is non-empty.
	MessageStore interface {
		AddMessage(ctx context.Context, m MessageRecord) error
		ListMessagesBySession(ctx context.Context, sessionID string) ([]MessageRecord, error)
		// ListMessagesUpToTurn concatenates messages belonging to the turn
		// chain from the session's root turn through turnID inclusive,
		// supporting time-travel reads (§8 scenario S6: "History returned
		// for the session concatenates messages of T1 and T2 only").
		ListMessagesUpToTurn(ctx context.Context, sessionID, turnID string) ([]MessageRecord, error)
	}

	// Store bundles the four sub-stores the persistence adapter exposes.
	Store interface {
		Sessions() SessionStore
		Turns() TurnStore
		Steps() StepStore
		Messages() MessageStore
	}
)

// ErrNotFound is returned by Get*/Load-style methods when the requested
// record does not exist.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "persistence: not found" }
