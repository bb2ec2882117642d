package model

import "time"

// GatewayProbe describes what could be learned about a route's gateway
// without touching the routing table.
type GatewayProbe struct {
	Gateway    string        `json:"gateway"`
	Reachable  bool          `json:"reachable"`
	Method     string        `json:"method,omitempty"` // icmp or tcp
	Latency    time.Duration `json:"latency_ns,omitempty"`
	MACAddress string        `json:"mac_address,omitempty"`
	Hostname   string        `json:"hostname,omitempty"`
}
