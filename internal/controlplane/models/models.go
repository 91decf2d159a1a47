// Package models defines the GORM-mapped durable representation of the
// routing table's configuration (spec C2: nodes, reachable endpoints,
// scheduled contacts), the rows internal/controlplane/store persists so a
// BPA instance's node-conf survives a restart.
package models

import "time"

// NodeRecord is the durable form of a routing.Node: the node's EID, its CLA
// address, and its node-wide reachable endpoints (JSON array of canonical
// EID strings — a node has an unbounded number of endpoints, so they are
// not normalized into a join table).
type NodeRecord struct {
	NodeEID       string `gorm:"primaryKey;size:255"`
	ClaAddress    string `gorm:"size:255"`
	EndpointsJSON string `gorm:"type:text"`

	Contacts []ContactRecord `gorm:"foreignKey:NodeEID;references:NodeEID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for NodeRecord.
func (NodeRecord) TableName() string { return "routing_nodes" }

// ContactRecord is the durable form of one routing.Contact scheduled
// against a node. Queued bundles and remaining-capacity counters are
// runtime-only state recomputed by routing.NewContact on load; only the
// configured window and contact-only endpoints are persisted.
type ContactRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	NodeEID    string `gorm:"index;size:255;not null"`
	FromMs     int64
	ToMs       int64
	BitrateBps int64
	EndpointsJSON string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for ContactRecord.
func (ContactRecord) TableName() string { return "routing_contacts" }

// AllModels returns all GORM models for auto-migration.
func AllModels() []any {
	return []any{
		&NodeRecord{},
		&ContactRecord{},
	}
}
