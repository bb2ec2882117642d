package reconciler

import (
	"fmt"
	"regexp"

	"github.com/martinsuchenak/routekeeper/internal/ipv4"
	"github.com/martinsuchenak/routekeeper/internal/model"
)

// Strategy selects how a route is handed to the kernel. Gateway routes name
// an explicit next hop; interface routes bind the destination to a device.
type Strategy string

const (
	StrategyGateway   Strategy = "gateway"
	StrategyInterface Strategy = "interface"
)

// ParseStrategy accepts "gateway" (or empty) and "interface".
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyGateway:
		return StrategyGateway, nil
	case StrategyInterface:
		return StrategyInterface, nil
	}
	return "", fmt.Errorf("unknown route strategy %q", s)
}

// Commands run through a root shell, so interface names are restricted to
// characters that cannot change the command line.
var interfaceName = regexp.MustCompile(`^[A-Za-z0-9._-]{1,32}$`)

// destination validates r and renders "<ip>/<prefix>".
func destination(r *model.Route) (string, error) {
	if err := ipv4.ValidateRoute(r); err != nil {
		return "", err
	}
	if !interfaceName.MatchString(r.Interface) {
		return "", fmt.Errorf("invalid route: interface: %q is not a valid interface name", r.Interface)
	}
	prefix, err := ipv4.SubnetMaskToCIDR(r.SubnetMask)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%d", r.IPAddress, prefix), nil
}

// target is the trailing argument of add/delete for s.
func (s Strategy) target(r *model.Route) string {
	if s == StrategyInterface {
		return "-interface " + r.Interface
	}
	return r.Gateway
}

// AddCommand renders the route(8) command that installs r.
func (s Strategy) AddCommand(r *model.Route) (string, error) {
	dst, err := destination(r)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("route -n add -net %s %s", dst, s.target(r)), nil
}

// DeleteCommand renders the route(8) command that removes r.
func (s Strategy) DeleteCommand(r *model.Route) (string, error) {
	dst, err := destination(r)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("route -n delete -net %s %s", dst, s.target(r)), nil
}

// StatusCommand renders the query used to decide whether r is installed.
func (s Strategy) StatusCommand(r *model.Route) (string, error) {
	if _, err := destination(r); err != nil {
		return "", err
	}
	return "route -n get " + r.IPAddress, nil
}

// InterfaceGatewayCommand asks for the gateway an interface would use to
// reach the internet.
func InterfaceGatewayCommand(iface string) (string, error) {
	if !interfaceName.MatchString(iface) {
		return "", fmt.Errorf("invalid interface name %q", iface)
	}
	return "route -n get -ifscope " + iface + " 1.1.1.1 | grep gateway", nil
}
