package persistence

import "context"

// TurnChain walks parent pointers from turnID back to the root turn and
// returns the turn ids root-first. Used by MessageStore.ListMessagesUpToTurn
// implementations to resolve which turns belong to the requested time-travel
// pointer (§8 scenario S6).
func TurnChain(ctx context.Context, turns TurnStore, turnID string) ([]string, error) {
	var ids []string
	for turnID != "" {
		t, err := turns.GetTurn(ctx, turnID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, t.ID)
		turnID = t.ParentID
	}
	// reverse into root-first order
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids, nil
}
