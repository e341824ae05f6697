package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/persistence"
	"github.com/chartrun/machine/persistence/memory"
)

func TestSessionCreateGetPatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	created, err := store.Sessions().CreateSession(ctx, "s1", time.Now())
	require.NoError(t, err)
	require.Equal(t, "s1", created.ID)

	got, err := store.Sessions().GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, created.CreatedAt, got.CreatedAt)

	patched, err := store.Sessions().PatchSession(ctx, "s1", "turn-1")
	require.NoError(t, err)
	require.Equal(t, "turn-1", patched.CurrentTurnID)

	_, err = store.Sessions().GetSession(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestMessageAddIsIdempotentPerSessionAndKey(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	msg := persistence.MessageRecord{
		SessionID: "s1", TurnID: "t1", IdempotencyKey: "ext-1",
		Message: charter.NewTextMessage(charter.RoleUser, "hello"),
	}
	require.NoError(t, store.Messages().AddMessage(ctx, msg))
	require.NoError(t, store.Messages().AddMessage(ctx, msg))

	list, err := store.Messages().ListMessagesBySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

// TestListMessagesUpToTurnSupportsTimeTravel covers §8 scenario S6: a
// session with turns T1 -> T2 -> T3 (T3 a sibling branch off T1) where
// reading "up to T2" must include only T1 and T2's messages.
func TestListMessagesUpToTurnSupportsTimeTravel(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	_, err := store.Sessions().CreateSession(ctx, "s1", time.Now())
	require.NoError(t, err)

	_, err = store.Turns().CreateTurn(ctx, persistence.Turn{ID: "t1", SessionID: "s1"})
	require.NoError(t, err)
	_, err = store.Turns().CreateTurn(ctx, persistence.Turn{ID: "t2", SessionID: "s1", ParentID: "t1"})
	require.NoError(t, err)
	_, err = store.Turns().CreateTurn(ctx, persistence.Turn{ID: "t3", SessionID: "s1", ParentID: "t1"})
	require.NoError(t, err)

	require.NoError(t, store.Messages().AddMessage(ctx, persistence.MessageRecord{SessionID: "s1", TurnID: "t1", Message: charter.NewTextMessage(charter.RoleUser, "m1")}))
	require.NoError(t, store.Messages().AddMessage(ctx, persistence.MessageRecord{SessionID: "s1", TurnID: "t2", Message: charter.NewTextMessage(charter.RoleUser, "m2")}))
	require.NoError(t, store.Messages().AddMessage(ctx, persistence.MessageRecord{SessionID: "s1", TurnID: "t3", Message: charter.NewTextMessage(charter.RoleUser, "m3")}))

	upToT2, err := store.Messages().ListMessagesUpToTurn(ctx, "s1", "t2")
	require.NoError(t, err)
	require.Len(t, upToT2, 2)
	texts := []string{upToT2[0].Message.Text(), upToT2[1].Message.Text()}
	require.ElementsMatch(t, []string{"m1", "m2"}, texts)

	upToT3, err := store.Messages().ListMessagesUpToTurn(ctx, "s1", "t3")
	require.NoError(t, err)
	require.Len(t, upToT3, 2)
	texts3 := []string{upToT3[0].Message.Text(), upToT3[1].Message.Text()}
	require.ElementsMatch(t, []string{"m1", "m3"}, texts3)
}

func TestStepsAddAndListByTurn(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Steps().AddStep(ctx, persistence.StepRecord{TurnID: "t1", Index: 0, YieldReason: charter.YieldToolUse}))
	require.NoError(t, store.Steps().AddStep(ctx, persistence.StepRecord{TurnID: "t1", Index: 1, YieldReason: charter.YieldEndTurn, Done: true}))

	steps, err := store.Steps().ListStepsByTurn(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	require.True(t, steps[1].Done)
}
