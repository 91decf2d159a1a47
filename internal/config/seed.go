package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dtnkit/bpa/pkg/configagent"
	"github.com/dtnkit/bpa/pkg/eid"
)

// SeedContact is one contact window in a ContactSeedFile entry, times in
// seconds the way the wire grammar's contact list expresses them (spec §6).
type SeedContact struct {
	FromS      int64    `yaml:"from_s"`
	ToS        int64    `yaml:"to_s"`
	BitrateBps int64    `yaml:"bitrate_bps"`
	Endpoints  []string `yaml:"endpoints,omitempty"`
}

// SeedNode is one ContactSeedFile entry: a node to add-or-union into the
// routing table at startup, in the same shape as a configagent `add`
// command (spec §4.2's add-node union semantics apply on load, too).
type SeedNode struct {
	EID        string        `yaml:"eid"`
	CLAAddress string        `yaml:"cla_address,omitempty"`
	Endpoints  []string      `yaml:"endpoints,omitempty"`
	Contacts   []SeedContact `yaml:"contacts,omitempty"`
}

// LoadSeed reads path and converts each entry into the configagent.Command
// an equivalent "add" wire command would produce, so seeding at startup and
// a live Config Agent bundle go through the exact same Apply path (§4.2).
func LoadSeed(path string) ([]*configagent.Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading contact seed file: %w", err)
	}

	var nodes []SeedNode
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("parsing contact seed file: %w", err)
	}

	cmds := make([]*configagent.Command, 0, len(nodes))
	for i, n := range nodes {
		cmd, err := n.toCommand()
		if err != nil {
			return nil, fmt.Errorf("contact seed file entry %d: %w", i, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func (n SeedNode) toCommand() (*configagent.Command, error) {
	nodeEID, err := eid.Parse(n.EID)
	if err != nil {
		return nil, fmt.Errorf("eid: %w", err)
	}

	endpoints, err := parseEIDList(n.Endpoints)
	if err != nil {
		return nil, fmt.Errorf("endpoints: %w", err)
	}

	contacts := make([]configagent.ContactSpec, 0, len(n.Contacts))
	for i, c := range n.Contacts {
		contactEndpoints, err := parseEIDList(c.Endpoints)
		if err != nil {
			return nil, fmt.Errorf("contacts[%d].endpoints: %w", i, err)
		}
		contacts = append(contacts, configagent.ContactSpec{
			FromMs:     c.FromS * 1000,
			ToMs:       c.ToS * 1000,
			BitrateBps: c.BitrateBps,
			Endpoints:  contactEndpoints,
		})
	}

	return &configagent.Command{
		Type:       configagent.CmdAdd,
		NodeEID:    nodeEID,
		CLAAddress: n.CLAAddress,
		Endpoints:  endpoints,
		Contacts:   contacts,
	}, nil
}

func parseEIDList(raw []string) ([]eid.EID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]eid.EID, len(raw))
	for i, s := range raw {
		e, err := eid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		out[i] = e
	}
	return out, nil
}
