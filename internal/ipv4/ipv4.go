// Package ipv4 validates dotted-quad addresses and converts between subnet
// masks and CIDR prefix lengths.
package ipv4

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/martinsuchenak/routekeeper/internal/model"
)

var (
	ErrInvalidAddress = errors.New("invalid IPv4 address")
	ErrInvalidMask    = errors.New("invalid subnet mask")
	ErrInvalidPrefix  = errors.New("invalid CIDR prefix length")
)

// parseOctets splits s into exactly four decimal octets in 0-255.
func parseOctets(s string) ([4]uint8, bool) {
	var out [4]uint8
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return out, false
	}
	for i, p := range parts {
		if p == "" || len(p) > 3 {
			return out, false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return out, false
			}
		}
		n, err := strconv.Atoi(p)
		if err != nil || n > 255 {
			return out, false
		}
		out[i] = uint8(n)
	}
	return out, true
}

// IsValidIPAddress accepts exactly four dot-separated decimal octets, each 0-255.
func IsValidIPAddress(s string) bool {
	_, ok := parseOctets(s)
	return ok
}

func maskBits(mask string) (uint32, bool) {
	o, ok := parseOctets(mask)
	if !ok {
		return 0, false
	}
	return uint32(o[0])<<24 | uint32(o[1])<<16 | uint32(o[2])<<8 | uint32(o[3]), true
}

// IsValidSubnetMask accepts masks whose 32-bit pattern is a run of ones
// followed by a run of zeros.
func IsValidSubnetMask(mask string) bool {
	v, ok := maskBits(mask)
	if !ok {
		return false
	}
	// inverted contiguous mask is 2^k-1, so adding one leaves a single bit
	inv := ^v
	return inv&(inv+1) == 0
}

// SubnetMaskToCIDR returns the number of set bits in mask. Callers validate
// the mask first, at which point this equals the prefix length.
func SubnetMaskToCIDR(mask string) (int, error) {
	v, ok := maskBits(mask)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMask, mask)
	}
	return bits.OnesCount32(v), nil
}

// CIDRToSubnetMask renders a prefix length as a dotted-quad mask.
func CIDRToSubnetMask(prefix int) (string, error) {
	if prefix < 0 || prefix > 32 {
		return "", fmt.Errorf("%w: %d", ErrInvalidPrefix, prefix)
	}
	var v uint32
	if prefix > 0 {
		v = ^uint32(0) << (32 - prefix)
	}
	return fmt.Sprintf("%d.%d.%d.%d", v>>24, v>>16&0xff, v>>8&0xff, v&0xff), nil
}

// ValidationError lists every invalid field of a route.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := []string{"name", "ip_address", "subnet_mask", "gateway", "interface"}
	var parts []string
	for _, k := range keys {
		if msg, ok := e.Fields[k]; ok {
			parts = append(parts, k+": "+msg)
		}
	}
	return "invalid route: " + strings.Join(parts, "; ")
}

// ValidateRoute checks the user-editable fields of r.
func ValidateRoute(r *model.Route) error {
	fields := map[string]string{}
	if strings.TrimSpace(r.Name) == "" {
		fields["name"] = "required"
	}
	if !IsValidIPAddress(r.IPAddress) {
		fields["ip_address"] = "must be a dotted-quad IPv4 address"
	}
	if !IsValidSubnetMask(r.SubnetMask) {
		fields["subnet_mask"] = "must be a contiguous IPv4 mask"
	}
	if !IsValidIPAddress(r.Gateway) {
		fields["gateway"] = "must be a dotted-quad IPv4 address"
	}
	if strings.TrimSpace(r.Interface) == "" {
		fields["interface"] = "required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
