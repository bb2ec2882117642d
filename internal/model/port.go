package model

// NetworkPort is a hardware network interface as reported by the OS.
// Ports are never persisted; each refresh replaces the previous list.
type NetworkPort struct {
	HardwarePort    string `json:"hardware_port"`
	Device          string `json:"device"`
	EthernetAddress string `json:"ethernet_address"`
	IsActive        bool   `json:"is_active"`
}
