package model

import (
	"time"
)

// Route is a user-defined routing rule mirrored into the OS routing table.
// IsActive is the last observed system state and is only ever written by a
// status check or an apply/remove outcome.
type Route struct {
	ID         string    `json:"id" yaml:"-"`
	Name       string    `json:"name" yaml:"name"`
	IPAddress  string    `json:"ip_address" yaml:"ip_address"`
	SubnetMask string    `json:"subnet_mask" yaml:"subnet_mask"`
	Gateway    string    `json:"gateway" yaml:"gateway"`
	Interface  string    `json:"interface" yaml:"interface"`
	IsActive   bool      `json:"is_active" yaml:"-"`
	CreatedAt  time.Time `json:"created_at" yaml:"-"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"-"`
}

// RouteUpdate is a partial update; nil fields are left untouched.
type RouteUpdate struct {
	Name       *string `json:"name,omitempty"`
	IPAddress  *string `json:"ip_address,omitempty"`
	SubnetMask *string `json:"subnet_mask,omitempty"`
	Gateway    *string `json:"gateway,omitempty"`
	Interface  *string `json:"interface,omitempty"`
}

// Apply copies the supplied fields onto r. It does not touch timestamps.
func (u *RouteUpdate) Apply(r *Route) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.IPAddress != nil {
		r.IPAddress = *u.IPAddress
	}
	if u.SubnetMask != nil {
		r.SubnetMask = *u.SubnetMask
	}
	if u.Gateway != nil {
		r.Gateway = *u.Gateway
	}
	if u.Interface != nil {
		r.Interface = *u.Interface
	}
}

// IsEmpty reports whether no field would change.
func (u *RouteUpdate) IsEmpty() bool {
	return u.Name == nil && u.IPAddress == nil && u.SubnetMask == nil && u.Gateway == nil && u.Interface == nil
}

// RouteFilter holds filter criteria for listing routes
type RouteFilter struct {
	Name       string // partial match
	ActiveOnly bool
}
