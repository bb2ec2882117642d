package routefile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/martinsuchenak/routekeeper/internal/model"
)

func TestWriteOmitsRuntimeFields(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []model.Route{{
		ID:         "0190a1b2-0000-7000-8000-000000000000",
		Name:       "office",
		IPAddress:  "192.168.1.0",
		SubnetMask: "255.255.255.0",
		Gateway:    "192.168.1.1",
		Interface:  "en0",
		IsActive:   true,
	}})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"version: 1", "name: office", "ip_address: 192.168.1.0", "interface: en0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	for _, unwanted := range []string{"0190a1b2", "is_active", "created_at"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("output should not contain %q:\n%s", unwanted, out)
		}
	}
}

func TestRead(t *testing.T) {
	doc := `
version: 1
routes:
  - name: office
    ip_address: 192.168.1.0
    subnet_mask: 255.255.255.0
    gateway: 192.168.1.1
    interface: en0
  - name: lab
    ip_address: 10.20.0.0
    subnet_mask: 255.255.0.0
    gateway: 10.0.0.1
    interface: en1
`
	routes, err := Read(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(routes) != 2 || routes[1].Name != "lab" || routes[1].SubnetMask != "255.255.0.0" {
		t.Fatalf("unexpected routes: %+v", routes)
	}
}

func TestReadRejects(t *testing.T) {
	tests := map[string]string{
		"invalid mask": `
routes:
  - name: bad
    ip_address: 10.0.0.0
    subnet_mask: 255.0.255.0
    gateway: 10.0.0.1
    interface: en0
`,
		"unknown field": `
routes:
  - name: bad
    destination: 10.0.0.0
`,
		"future version": "version: 9\nroutes: []\n",
		"not yaml":       "routes: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestReadEmpty(t *testing.T) {
	routes, err := Read(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if routes == nil || len(routes) != 0 {
		t.Fatalf("expected empty slice, got %#v", routes)
	}
}
