package adminapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnkit/bpa/internal/routing"
	"github.com/dtnkit/bpa/pkg/eid"
)

func mustEID(t *testing.T, raw string) eid.EID {
	t.Helper()
	e, err := eid.Parse(raw)
	require.NoError(t, err)
	return e
}

func TestLivenessReturnsHealthy(t *testing.T) {
	router := NewRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestReadinessUnhealthyWithoutTable(t *testing.T) {
	router := NewRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadinessHealthyWithTable(t *testing.T) {
	table := routing.New(nil)
	router := NewRouter(table)
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListNodesReturnsKnownNodes(t *testing.T) {
	table := routing.New(nil)
	nodeEID := mustEID(t, "dtn://peer/")
	node := &routing.Node{EID: nodeEID, ClaAddress: "tcpclv4://10.0.0.1:4556"}
	node.Contacts = append(node.Contacts, routing.NewContact(node, 1_000, 2_000, 1_000, nil))
	table.AddNode(node)

	router := NewRouter(table)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nodes", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	data, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, data, 1)
}

func TestGetNodeByEID(t *testing.T) {
	table := routing.New(nil)
	nodeEID := mustEID(t, "dtn://peer/")
	node := &routing.Node{EID: nodeEID, ClaAddress: "tcpclv4://10.0.0.1:4556"}
	table.AddNode(node)

	router := NewRouter(table)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nodes/dtn://peer/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestGetNodeUnknownReturnsNotFound(t *testing.T) {
	table := routing.New(nil)
	router := NewRouter(table)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nodes/dtn://unknown/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
