package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dtnkit/bpa/internal/cliout"
)

var (
	statusAddr   string
	statusFormat string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running bpa's admin API for its known nodes",
	Long: `Query a running bpa instance's read-only admin API and print its
known routing-table nodes and contacts. Requires admin_api.enabled in the
target instance's configuration.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://127.0.0.1:8081", "admin API base address")
	statusCmd.Flags().StringVar(&statusFormat, "format", "table", "output format: table, json, yaml")
}

type statusEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

type statusContact struct {
	FromMs        int64  `json:"from_ms"`
	ToMs          int64  `json:"to_ms"`
	BitrateBps    int64  `json:"bitrate_bps"`
	RemainingP0   int64  `json:"remaining_p0"`
	QueuedBundles int    `json:"queued_bundles"`
	Active        bool   `json:"active"`
}

type statusNode struct {
	EID        string          `json:"eid"`
	ClaAddress string          `json:"cla_address"`
	Endpoints  []string        `json:"endpoints"`
	Contacts   []statusContact `json:"contacts"`
}

type statusNodeTable []statusNode

func (t statusNodeTable) Headers() []string {
	return []string{"EID", "CLA Address", "Contacts", "Active"}
}

func (t statusNodeTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, n := range t {
		active := 0
		for _, c := range n.Contacts {
			if c.Active {
				active++
			}
		}
		rows = append(rows, []string{
			n.EID,
			n.ClaAddress,
			strconv.Itoa(len(n.Contacts)),
			strconv.Itoa(active),
		})
	}
	return rows
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := cliout.ParseFormat(statusFormat)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(statusAddr + "/api/v1/nodes")
	if err != nil {
		return fmt.Errorf("failed to reach admin API at %s: %w", statusAddr, err)
	}
	defer resp.Body.Close()

	var envelope statusEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode admin API response: %w", err)
	}
	if envelope.Status == "error" {
		return fmt.Errorf("admin API returned an error: %s", envelope.Error)
	}

	var nodes statusNodeTable
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &nodes); err != nil {
			return fmt.Errorf("failed to decode node list: %w", err)
		}
	}

	return cliout.Print(cmd.OutOrStdout(), format, nodes)
}
