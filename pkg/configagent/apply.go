package configagent

import (
	"fmt"

	"github.com/dtnkit/bpa/internal/routing"
	"github.com/dtnkit/bpa/pkg/eid"
)

// QueryResult mirrors a routing.Node for the "4" (query) command — the
// read-only snapshot returned to the caller instead of a table mutation.
type QueryResult struct {
	NodeEID    eid.EID
	CLAAddress string
	Endpoints  []eid.EID
	Contacts   []ContactSpec
}

// toNode builds the routing.Node an add/update command describes,
// including freshly constructed contacts (spec §3's NewContact capacity
// computation).
func (c *Command) toNode() *routing.Node {
	node := &routing.Node{
		EID:        c.NodeEID,
		ClaAddress: c.CLAAddress,
		Endpoints:  c.Endpoints,
	}
	for _, spec := range c.Contacts {
		node.Contacts = append(node.Contacts, routing.NewContact(node, spec.FromMs, spec.ToMs, spec.BitrateBps, spec.Endpoints))
	}
	return node
}

// contactWindows extracts the [from_ms,to_ms] pairs a delete command names,
// for routing.Table.DeleteNode's contactWindows parameter.
func (c *Command) contactWindows() [][2]int64 {
	if len(c.Contacts) == 0 {
		return nil
	}
	windows := make([][2]int64, len(c.Contacts))
	for i, spec := range c.Contacts {
		windows[i] = [2]int64{spec.FromMs, spec.ToMs}
	}
	return windows
}

// Apply mutates table per cmd's type (spec §6: add merges into any existing
// node via routing.Table.AddNode's union rules and never errors, update
// replaces wholesale, delete removes named endpoints/contact windows or the
// whole node if both are empty). Query performs no mutation and returns a
// snapshot instead.
func Apply(table *routing.Table, cmd *Command) (*QueryResult, error) {
	switch cmd.Type {
	case CmdAdd:
		table.AddNode(cmd.toNode())
		return nil, nil
	case CmdUpdate:
		table.ReplaceNode(cmd.toNode())
		return nil, nil
	case CmdDelete:
		table.DeleteNode(cmd.NodeEID, cmd.Endpoints, cmd.contactWindows())
		return nil, nil
	case CmdQuery:
		node, ok := table.LookupByEID(cmd.NodeEID)
		if !ok {
			return nil, fmt.Errorf("configagent: no such node %s", cmd.NodeEID)
		}
		return snapshotNode(node), nil
	default:
		return nil, fmt.Errorf("configagent: unhandled command type %s", cmd.Type)
	}
}

func snapshotNode(node *routing.Node) *QueryResult {
	result := &QueryResult{
		NodeEID:    node.EID,
		CLAAddress: node.ClaAddress,
		Endpoints:  node.Endpoints,
	}
	for _, c := range node.Contacts {
		result.Contacts = append(result.Contacts, ContactSpec{
			FromMs:     c.FromMs,
			ToMs:       c.ToMs,
			BitrateBps: c.BitrateBps,
			Endpoints:  c.ExtraEndpoints,
		})
	}
	return result
}
