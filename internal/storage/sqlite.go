package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
	_ "modernc.org/sqlite"
)

const (
	databaseFile    = "routekeeper.db"
	duplicateSuffix = " Copy"
)

// SQLiteStorage is the SQLite backed route store.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens (or creates) the route database in dataDir. A database
// that cannot be opened or migrated is discarded and recreated empty.
func NewSQLiteStorage(dataDir string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	path := filepath.Join(dataDir, databaseFile)

	ss, err := openSQLite(path)
	if err == nil {
		return ss, nil
	}

	log.Warn("Route store unusable, recreating", "path", path, "error", err)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if rmErr := os.Remove(p); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return nil, fmt.Errorf("removing %s: %w", p, rmErr)
		}
	}
	return openSQLite(path)
}

func openSQLite(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	ss := &SQLiteStorage{db: db, path: path}
	if err := ss.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return ss, nil
}

// Path returns the database file location.
func (ss *SQLiteStorage) Path() string {
	return ss.path
}

func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}

const routeColumns = `id, name, ip_address, subnet_mask, gateway, interface, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row rowScanner) (*model.Route, error) {
	var r model.Route
	if err := row.Scan(&r.ID, &r.Name, &r.IPAddress, &r.SubnetMask, &r.Gateway, &r.Interface, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRoutes returns routes ordered by name, then creation time.
func (ss *SQLiteStorage) ListRoutes(filter *model.RouteFilter) ([]model.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes`
	var where []string
	var args []any
	if filter != nil {
		if filter.Name != "" {
			where = append(where, "name LIKE ?")
			args = append(args, "%"+filter.Name+"%")
		}
		if filter.ActiveOnly {
			where = append(where, "is_active = 1")
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name COLLATE NOCASE, created_at"

	rows, err := ss.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying routes: %w", err)
	}
	defer rows.Close()

	routes := []model.Route{}
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning route: %w", err)
		}
		routes = append(routes, *r)
	}
	return routes, rows.Err()
}

func (ss *SQLiteStorage) GetRoute(id string) (*model.Route, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	r, err := scanRoute(ss.db.QueryRow(`SELECT `+routeColumns+` FROM routes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRouteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting route: %w", err)
	}
	return r, nil
}

// CreateRoute inserts route, assigning an ID and timestamps when missing.
func (ss *SQLiteStorage) CreateRoute(route *model.Route) error {
	if route.ID == "" {
		route.ID = generateID()
	} else if _, err := uuid.Parse(route.ID); err != nil {
		return ErrInvalidID
	}
	now := time.Now().UTC()
	if route.CreatedAt.IsZero() {
		route.CreatedAt = now
	}
	route.UpdatedAt = now

	_, err := ss.db.Exec(`
		INSERT INTO routes (`+routeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, route.ID, route.Name, route.IPAddress, route.SubnetMask, route.Gateway, route.Interface, route.IsActive, route.CreatedAt, route.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("route %s already exists", route.ID)
		}
		return fmt.Errorf("inserting route: %w", err)
	}
	return nil
}

// UpdateRoute applies a partial update. updated_at always moves forward, even
// for an empty update.
func (ss *SQLiteStorage) UpdateRoute(id string, update *model.RouteUpdate) (*model.Route, error) {
	route, err := ss.GetRoute(id)
	if err != nil {
		return nil, err
	}
	if update != nil {
		update.Apply(route)
	}
	route.UpdatedAt = time.Now().UTC()

	res, err := ss.db.Exec(`
		UPDATE routes
		SET name = ?, ip_address = ?, subnet_mask = ?, gateway = ?, interface = ?, updated_at = ?
		WHERE id = ?
	`, route.Name, route.IPAddress, route.SubnetMask, route.Gateway, route.Interface, route.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("updating route: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrRouteNotFound
	}
	return route, nil
}

func (ss *SQLiteStorage) DeleteRoute(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	res, err := ss.db.Exec(`DELETE FROM routes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting route: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRouteNotFound
	}
	return nil
}

// DuplicateRoute copies the user fields of id into a new, inactive route.
func (ss *SQLiteStorage) DuplicateRoute(id string) (*model.Route, error) {
	src, err := ss.GetRoute(id)
	if err != nil {
		return nil, err
	}
	dup := &model.Route{
		Name:       src.Name + duplicateSuffix,
		IPAddress:  src.IPAddress,
		SubnetMask: src.SubnetMask,
		Gateway:    src.Gateway,
		Interface:  src.Interface,
	}
	if err := ss.CreateRoute(dup); err != nil {
		return nil, err
	}
	return dup, nil
}

// SetRouteActive records observed system state. It bumps updated_at only when
// the state actually changes.
func (ss *SQLiteStorage) SetRouteActive(id string, active bool) error {
	res, err := ss.db.Exec(`
		UPDATE routes SET is_active = ?, updated_at = CASE WHEN is_active = ? THEN updated_at ELSE ? END
		WHERE id = ?
	`, active, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("setting route state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRouteNotFound
	}
	return nil
}

// generateID generates a UUIDv7 for a route
func generateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
