// Package routefile reads and writes route definitions as YAML so they can
// be versioned or moved between machines.
package routefile

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/martinsuchenak/routekeeper/internal/ipv4"
	"github.com/martinsuchenak/routekeeper/internal/model"
)

const currentVersion = 1

// Document is the on-disk layout.
type Document struct {
	Version int           `yaml:"version"`
	Routes  []model.Route `yaml:"routes"`
}

// Write encodes routes. Only user-editable fields are written.
func Write(w io.Writer, routes []model.Route) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Document{Version: currentVersion, Routes: routes}); err != nil {
		return fmt.Errorf("encoding routes: %w", err)
	}
	return enc.Close()
}

// Read decodes and validates a document. Every invalid entry is reported;
// nothing is returned unless all entries are valid.
func Read(r io.Reader) ([]model.Route, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []model.Route{}, nil
		}
		return nil, fmt.Errorf("decoding routes: %w", err)
	}
	if doc.Version > currentVersion {
		return nil, fmt.Errorf("unsupported route file version %d", doc.Version)
	}

	var errs []error
	for i := range doc.Routes {
		if err := ipv4.ValidateRoute(&doc.Routes[i]); err != nil {
			errs = append(errs, fmt.Errorf("route %d (%s): %w", i+1, doc.Routes[i].Name, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if doc.Routes == nil {
		doc.Routes = []model.Route{}
	}
	return doc.Routes, nil
}
