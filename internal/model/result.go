package model

import "time"

// ScanResult is the ranked output of one scan cycle.
type ScanResult struct {
	RunID     string      `json:"run_id"`
	Timestamp time.Time   `json:"timestamp"`
	Count     int         `json:"count"`
	Data      []Candidate `json:"data"`
}
