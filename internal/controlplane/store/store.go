// Package store persists routing table configuration (spec C2 node-conf:
// nodes, CLA addresses, reachable endpoints, scheduled contacts) durably via
// GORM, so a BPA instance's routing table survives a restart instead of
// starting out empty until the config agent replays every command.
//
// This is optional infrastructure: internal/config.ControlPlaneConfig.Enabled
// gates whether cmd/bpa constructs a Store at all. The Bundle Processor,
// Router, and Contact Manager never depend on it directly. cmd/bpa calls
// only LoadAll, once at startup; nothing in cmd/bpa calls SaveNode or
// DeleteNode, so config-agent mutations are not written to the store.
//
// Backend selection and connection setup mirror the teacher's
// pkg/controlplane/store.GORMStore: the same dialector switch, the same
// SQLite WAL/busy-timeout pragmas, AutoMigrate against a fixed model list.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dtnkit/bpa/internal/controlplane/models"
	"github.com/dtnkit/bpa/internal/routing"
	"github.com/dtnkit/bpa/pkg/eid"
)

// Store persists routing.Table configuration via GORM.
type Store struct {
	db *gorm.DB
}

// New opens (creating if absent) a control-plane database for driver
// ("sqlite" or "postgres") at dsn (a filesystem path for sqlite, a
// connection string for postgres), and runs auto-migration.
func New(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite", "":
		if dsn == "" {
			return nil, fmt.Errorf("controlplane: sqlite path is required")
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("controlplane: failed to create database directory: %w", err)
		}
		path := dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(path)
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("controlplane: postgres dsn is required")
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("controlplane: unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("controlplane: failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return nil, fmt.Errorf("controlplane: failed to run migration: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func encodeEIDs(eids []eid.EID) (string, error) {
	if len(eids) == 0 {
		return "", nil
	}
	raw := make([]string, len(eids))
	for i, e := range eids {
		raw[i] = e.String()
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeEIDs(encoded string) ([]eid.EID, error) {
	if encoded == "" {
		return nil, nil
	}
	var raw []string
	if err := json.Unmarshal([]byte(encoded), &raw); err != nil {
		return nil, fmt.Errorf("controlplane: corrupt endpoint list: %w", err)
	}
	out := make([]eid.EID, 0, len(raw))
	for _, s := range raw {
		e, err := eid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("controlplane: corrupt endpoint %q: %w", s, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// SaveNode upserts node's NodeRecord and replaces its ContactRecords
// wholesale: the routing.Table already holds the merged/authoritative
// contact list, so the store only needs to mirror it, not reconcile it.
func (s *Store) SaveNode(node *routing.Node) error {
	endpointsJSON, err := encodeEIDs(node.Endpoints)
	if err != nil {
		return fmt.Errorf("controlplane: failed to encode node endpoints: %w", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		rec := &models.NodeRecord{
			NodeEID:       node.EID.String(),
			ClaAddress:    node.ClaAddress,
			EndpointsJSON: endpointsJSON,
		}
		if err := tx.Save(rec).Error; err != nil {
			return fmt.Errorf("controlplane: failed to save node: %w", err)
		}

		if err := tx.Where("node_eid = ?", rec.NodeEID).Delete(&models.ContactRecord{}).Error; err != nil {
			return fmt.Errorf("controlplane: failed to clear stale contacts: %w", err)
		}

		for _, c := range node.Contacts {
			contactEndpointsJSON, err := encodeEIDs(c.ExtraEndpoints)
			if err != nil {
				return fmt.Errorf("controlplane: failed to encode contact endpoints: %w", err)
			}
			contactRec := &models.ContactRecord{
				NodeEID:       rec.NodeEID,
				FromMs:        c.FromMs,
				ToMs:          c.ToMs,
				BitrateBps:    c.BitrateBps,
				EndpointsJSON: contactEndpointsJSON,
			}
			if err := tx.Create(contactRec).Error; err != nil {
				return fmt.Errorf("controlplane: failed to save contact: %w", err)
			}
		}
		return nil
	})
}

// DeleteNode removes nodeEID's NodeRecord; its ContactRecords cascade with
// it (foreign key ON DELETE CASCADE).
func (s *Store) DeleteNode(nodeEID eid.EID) error {
	res := s.db.Where("node_eid = ?", nodeEID.String()).Delete(&models.NodeRecord{})
	if res.Error != nil {
		return fmt.Errorf("controlplane: failed to delete node: %w", res.Error)
	}
	return nil
}

// LoadAll reconstructs every persisted node (and its contacts) as
// routing.Node values, ready to be fed into routing.Table.AddNode — used
// once at startup to repopulate the routing table before the config agent
// or contact manager run.
func (s *Store) LoadAll() ([]*routing.Node, error) {
	var records []models.NodeRecord
	if err := s.db.Preload("Contacts").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("controlplane: failed to load nodes: %w", err)
	}

	nodes := make([]*routing.Node, 0, len(records))
	for _, rec := range records {
		nodeEID, err := eid.Parse(rec.NodeEID)
		if err != nil {
			return nil, fmt.Errorf("controlplane: corrupt node EID %q: %w", rec.NodeEID, err)
		}
		endpoints, err := decodeEIDs(rec.EndpointsJSON)
		if err != nil {
			return nil, err
		}

		node := &routing.Node{
			EID:        nodeEID,
			ClaAddress: rec.ClaAddress,
			Endpoints:  endpoints,
		}

		for _, cRec := range rec.Contacts {
			contactEndpoints, err := decodeEIDs(cRec.EndpointsJSON)
			if err != nil {
				return nil, err
			}
			node.Contacts = append(node.Contacts, routing.NewContact(node, cRec.FromMs, cRec.ToMs, cRec.BitrateBps, contactEndpoints))
		}

		nodes = append(nodes, node)
	}
	return nodes, nil
}
