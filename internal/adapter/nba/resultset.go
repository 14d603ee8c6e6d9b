package nba

import (
	"encoding/json"
	"fmt"
)

// ResultSet is one tabular block of a stats API response: column headers
// plus row data. It is the Go shape of the API's headers/rowSet pairs.
type ResultSet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rowSet"`
}

// Column returns the index of a header, or -1 when absent.
func (rs *ResultSet) Column(header string) int {
	for i, h := range rs.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

// statsResponse is the envelope every stats.nba.com endpoint returns.
type statsResponse struct {
	Resource   string      `json:"resource"`
	ResultSets []ResultSet `json:"resultSets"`
}

// parseStatsResponse decodes a stats API body and returns its first
// result set, matching how callers consume these endpoints.
func parseStatsResponse(body []byte) (*ResultSet, error) {
	var resp statsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode stats response: %w", err)
	}
	if len(resp.ResultSets) == 0 {
		return nil, fmt.Errorf("stats response for %q contained no result sets", resp.Resource)
	}
	return &resp.ResultSets[0], nil
}

// cellString renders one row cell for display or CSV output.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; drop the trailing .0 on integers.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
