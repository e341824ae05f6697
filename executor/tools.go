package executor

import (
	"github.com/chartrun/machine/charter"
	"github.com/chartrun/machine/inference"
)

// collectToolDefs gathers every tool visible to in.Node by the same
// shadowing priority the resolver applies (node > ancestors nearest-first >
// charter > current node's packs), deduplicating by name so a
// higher-priority scope silently wins (§4.1). This operates purely on the
// ExecutorInput snapshot — the resolver package's instance.Leaf-based walk
// isn't reachable from here by design (charter must stay free of any
// dependency on the live instance tree), so the same priority order is
// reimplemented against AncestorView/Node data instead.
func collectToolDefs(ch *charter.Charter, in charter.ExecutorInput) []inference.ToolDef {
	seen := map[string]bool{}
	var defs []inference.ToolDef

	add := func(t *charter.Tool) {
		if seen[t.Name] {
			return
		}
		seen[t.Name] = true
		defs = append(defs, inference.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schemaOrEmpty(t.InputSchema),
		})
	}

	for _, t := range in.Node.Tools {
		add(t)
	}
	for _, anc := range in.Ancestors {
		for _, t := range anc.Node.Tools {
			add(t)
		}
	}
	for _, t := range ch.Tools {
		add(t)
	}
	if !in.Worker {
		for _, packName := range in.Node.Packs {
			pack, ok := ch.Packs[packName]
			if !ok {
				continue
			}
			for _, t := range pack.Tools {
				add(t)
			}
		}
	}

	return append(builtinToolDefs(in.Node), defs...)
}

// builtinToolDefs advertises the updateState and transition/transition_*
// built-ins the tool pipeline recognizes (§4.3).
func builtinToolDefs(node *charter.Node) []inference.ToolDef {
	defs := []inference.ToolDef{
		{
			Name:        "updateState",
			Description: "Merge a partial patch into the current node state.",
			InputSchema: map[string]any{"type": "object"},
		},
	}
	if len(node.Transitions) > 0 {
		defs = append(defs, inference.ToolDef{
			Name:        "transition",
			Description: "Transition to one of the available transitions by name.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"to":     map[string]any{"type": "string"},
					"reason": map[string]any{"type": "string"},
				},
				"required": []any{"to"},
			},
		})
	}
	for name, tr := range node.Transitions {
		defs = append(defs, inference.ToolDef{
			Name:        "transition_" + name,
			Description: tr.Description,
			InputSchema: schemaOrEmpty(tr.ArgumentsSchema),
		})
	}
	return defs
}

func schemaOrEmpty(s *charter.Schema) map[string]any {
	if s == nil {
		return map[string]any{"type": "object"}
	}
	return s.JSONSchema()
}
