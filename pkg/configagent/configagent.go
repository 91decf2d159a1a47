// Package configagent parses the Configuration Agent's wire command
// grammar (spec §6): a single semicolon-terminated add/update/delete/query
// command, delivered as one bundle's payload. It has no CLA/AAP socket of
// its own (spec §1 Non-goals excludes AAP sockets) — a command arrives
// fully assembled as a bundle payload, so unlike pkg/codec there is no
// streaming contract to honor; this package is a straightforward
// recursive-descent scanner over a complete byte slice.
package configagent

import (
	"fmt"

	"github.com/dtnkit/bpa/pkg/eid"
)

// CommandType is the single leading byte identifying the operation.
type CommandType byte

const (
	CmdAdd    CommandType = '1'
	CmdUpdate CommandType = '2'
	CmdDelete CommandType = '3'
	CmdQuery  CommandType = '4'
)

func (t CommandType) String() string {
	switch t {
	case CmdAdd:
		return "add"
	case CmdUpdate:
		return "update"
	case CmdDelete:
		return "delete"
	case CmdQuery:
		return "query"
	default:
		return fmt.Sprintf("unknown(%c)", byte(t))
	}
}

// ContactSpec is one parsed `{from_s, to_s, bytes_per_sec [, [eids]]}`
// contact entry, times already converted from seconds to milliseconds.
type ContactSpec struct {
	FromMs     int64
	ToMs       int64
	BitrateBps int64
	Endpoints  []eid.EID // contact-only reachable endpoints
}

// Command is one fully parsed configuration command.
type Command struct {
	Type       CommandType
	NodeEID    eid.EID
	CLAAddress string
	Endpoints  []eid.EID // node-wide reachable endpoints
	Contacts   []ContactSpec
}

// reliabilityMin/Max are the original implementation's legacy range check
// on the (otherwise discarded) reliability field — see DESIGN.md: the
// original config_parser.c rejects the command if reliability falls
// outside [100,1000] even though the value itself is never used
// afterward. SPEC_FULL.md keeps this as a documented dead check.
const (
	reliabilityMin = 100
	reliabilityMax = 1000
)

// maxTimeSeconds bounds a parsed from_s/to_s value so ×1000 cannot
// overflow an int64 (mirrors config_parser.c's UINT64_MAX/1000 check,
// scaled to int64 since this module has no use for unsigned wire widths).
const maxTimeSeconds = (int64(1)<<62 - 1) / 1000

// Parse parses payload as one configuration command.
//
// Grammar (spec §6):
//
//	cmd_type_byte ( node_eid ) [ , reliability ]
//	  [ : ( cla_address ) ]
//	  [ : [ (endpoint_eid), ... ] ]
//	  [ : [ { from_s, to_s, bps [, [ (endpoint_eid), ... ] ] }, ... ] ] ;
//
// The three ":"-prefixed segments are each optional and may appear in any
// combination; Parse does not check their order. It sniffs the character
// after each ':' to tell a CLA address ("(") from a list ("[") and, within
// a list, an endpoint ("(") from a contact ("{").
func Parse(payload []byte) (*Command, error) {
	s := &scanner{data: payload}

	typeByte, ok := s.next()
	if !ok {
		return nil, fmt.Errorf("configagent: empty command")
	}
	switch CommandType(typeByte) {
	case CmdAdd, CmdUpdate, CmdDelete, CmdQuery:
	default:
		return nil, fmt.Errorf("configagent: unknown command type byte %q", typeByte)
	}
	cmd := &Command{Type: CommandType(typeByte)}

	if err := s.expect('('); err != nil {
		return nil, err
	}
	nodeRaw, err := s.readUntil(')')
	if err != nil {
		return nil, err
	}
	nodeEID, err := eid.Parse(nodeRaw)
	if err != nil {
		return nil, fmt.Errorf("configagent: node eid: %w", err)
	}
	// The original implementation normalizes every EID it reads down to
	// its bare node-ID form via get_node_id(). We apply that only to the
	// node-conf EID: the node-wide and per-contact endpoint lists name
	// reachable application/service EIDs (spec §3's "non-node EIDs
	// reachable via this node"), and stripping those to a node ID would
	// silently discard the service part the routing table needs to
	// answer LookupByEID for an application sink. See DESIGN.md.
	cmd.NodeEID = nodeEID.NodeID()

	if s.tryConsume(',') {
		if err := s.readReliability(); err != nil {
			return nil, err
		}
	}

	for s.tryConsume(':') {
		switch s.peek() {
		case '(':
			s.next()
			addr, err := s.readUntil(')')
			if err != nil {
				return nil, err
			}
			cmd.CLAAddress = addr
		case '[':
			s.next()
			if s.peek() == '{' {
				contacts, err := s.readContactList()
				if err != nil {
					return nil, err
				}
				cmd.Contacts = contacts
			} else {
				endpoints, err := s.readEIDList()
				if err != nil {
					return nil, err
				}
				cmd.Endpoints = endpoints
			}
		default:
			return nil, fmt.Errorf("configagent: unexpected byte %q after ':' at offset %d", s.peek(), s.pos)
		}
	}

	if err := s.expect(';'); err != nil {
		return nil, err
	}
	if !s.atEnd() {
		return nil, fmt.Errorf("configagent: trailing data after command terminator")
	}

	return cmd, nil
}
