package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"garage/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists the fleet in a single SQLite file. The
// connection pool is capped at one connection; SQLite allows a single
// writer and WAL keeps readers from blocking it.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullCents(m *core.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Cents, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

func moneyPtr(n sql.NullInt64) *core.Money {
	if !n.Valid {
		return nil
	}
	return &core.Money{Cents: n.Int64}
}

// Vehicles

const vehicleColumns = `id, nickname, make, model, trim, year, vin, license_plate,
	current_mileage, photo_path, created_at, updated_at`

func scanVehicle(row interface{ Scan(...any) error }) (core.Vehicle, error) {
	var (
		v       core.Vehicle
		mileage sql.NullFloat64
	)
	err := row.Scan(&v.ID, &v.Nickname, &v.Make, &v.Model, &v.Trim, &v.Year,
		&v.VIN, &v.LicensePlate, &mileage, &v.PhotoPath, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return core.Vehicle{}, err
	}
	v.CurrentMileage = floatPtr(mileage)
	return v, nil
}

func (r *SQLiteRepository) CreateVehicle(ctx context.Context, v core.Vehicle) (core.Vehicle, error) {
	if err := v.Validate(); err != nil {
		return core.Vehicle{}, err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO vehicles (nickname, make, model, trim, year, vin, license_plate,
			current_mileage, photo_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.Nickname, v.Make, v.Model, v.Trim, v.Year, v.VIN, v.LicensePlate,
		nullFloat(v.CurrentMileage), v.PhotoPath, now, now)
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("insert vehicle: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("vehicle insert id: %w", err)
	}
	v.ID = id
	v.CreatedAt = now
	v.UpdatedAt = now

	slog.InfoContext(ctx, "Vehicle created", "id", v.ID, "make", v.Make, "model", v.Model, "year", v.Year)
	return v, nil
}

func (r *SQLiteRepository) GetVehicle(ctx context.Context, id int64) (core.Vehicle, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id)
	v, err := scanVehicle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Vehicle{}, core.ErrNotFound
	}
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("get vehicle: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles ORDER BY year DESC, make ASC`)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []core.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (r *SQLiteRepository) UpdateVehicle(ctx context.Context, id int64, p core.VehiclePatch) (core.Vehicle, error) {
	v, err := r.GetVehicle(ctx, id)
	if err != nil {
		return core.Vehicle{}, err
	}
	if err := p.Apply(&v); err != nil {
		return core.Vehicle{}, err
	}
	v.UpdatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx, `
		UPDATE vehicles SET nickname = ?, make = ?, model = ?, trim = ?, year = ?,
			vin = ?, license_plate = ?, current_mileage = ?, updated_at = ?
		WHERE id = ?`,
		v.Nickname, v.Make, v.Model, v.Trim, v.Year, v.VIN, v.LicensePlate,
		nullFloat(v.CurrentMileage), v.UpdatedAt, id)
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("update vehicle: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) DeleteVehicle(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete vehicle rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Vehicle deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) SetVehiclePhoto(ctx context.Context, id int64, path string) (core.Vehicle, error) {
	v, err := r.GetVehicle(ctx, id)
	if err != nil {
		return core.Vehicle{}, err
	}
	v.PhotoPath = path
	v.UpdatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx,
		`UPDATE vehicles SET photo_path = ?, updated_at = ? WHERE id = ?`,
		path, v.UpdatedAt, id)
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("set vehicle photo: %w", err)
	}
	return v, nil
}

// Maintenance

const maintenanceColumns = `id, vehicle_id, type, date, mileage, cost_cents,
	shop_name, notes, receipt_path, created_at`

func scanMaintenance(row interface{ Scan(...any) error }) (core.Maintenance, error) {
	var (
		m       core.Maintenance
		date    string
		mileage sql.NullFloat64
		cost    sql.NullInt64
	)
	err := row.Scan(&m.ID, &m.VehicleID, &m.Type, &date, &mileage, &cost,
		&m.ShopName, &m.Notes, &m.ReceiptPath, &m.CreatedAt)
	if err != nil {
		return core.Maintenance{}, err
	}
	m.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Maintenance{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	m.Mileage = floatPtr(mileage)
	m.Cost = moneyPtr(cost)
	return m, nil
}

func (r *SQLiteRepository) CreateMaintenance(ctx context.Context, m core.Maintenance) (core.Maintenance, error) {
	m.Date = m.Date.Truncate()
	if err := m.Validate(); err != nil {
		return core.Maintenance{}, err
	}
	if _, err := r.GetVehicle(ctx, m.VehicleID); err != nil {
		return core.Maintenance{}, err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO maintenance (vehicle_id, type, date, mileage, cost_cents,
			shop_name, notes, receipt_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.VehicleID, m.Type, m.Date.String(), nullFloat(m.Mileage), nullCents(m.Cost),
		m.ShopName, m.Notes, m.ReceiptPath, now)
	if err != nil {
		return core.Maintenance{}, fmt.Errorf("insert maintenance: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Maintenance{}, fmt.Errorf("maintenance insert id: %w", err)
	}
	m.ID = id
	m.CreatedAt = now

	slog.InfoContext(ctx, "Maintenance record created",
		"id", m.ID, "vehicle_id", m.VehicleID, "type", m.Type, "date", m.Date.String())
	return m, nil
}

func (r *SQLiteRepository) GetMaintenance(ctx context.Context, vehicleID, id int64) (core.Maintenance, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+maintenanceColumns+` FROM maintenance WHERE id = ? AND vehicle_id = ?`,
		id, vehicleID)
	m, err := scanMaintenance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Maintenance{}, core.ErrNotFound
	}
	if err != nil {
		return core.Maintenance{}, fmt.Errorf("get maintenance: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) ListMaintenanceByVehicle(ctx context.Context, vehicleID int64) ([]core.Maintenance, error) {
	if _, err := r.GetVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+maintenanceColumns+` FROM maintenance WHERE vehicle_id = ? ORDER BY date DESC, id DESC`,
		vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list maintenance: %w", err)
	}
	defer rows.Close()

	var records []core.Maintenance
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan maintenance: %w", err)
		}
		records = append(records, m)
	}
	return records, rows.Err()
}

func (r *SQLiteRepository) UpdateMaintenance(ctx context.Context, vehicleID, id int64, p core.MaintenancePatch) (core.Maintenance, error) {
	m, err := r.GetMaintenance(ctx, vehicleID, id)
	if err != nil {
		return core.Maintenance{}, err
	}
	if err := p.Apply(&m); err != nil {
		return core.Maintenance{}, err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE maintenance SET type = ?, date = ?, mileage = ?, cost_cents = ?,
			shop_name = ?, notes = ?
		WHERE id = ? AND vehicle_id = ?`,
		m.Type, m.Date.String(), nullFloat(m.Mileage), nullCents(m.Cost),
		m.ShopName, m.Notes, id, vehicleID)
	if err != nil {
		return core.Maintenance{}, fmt.Errorf("update maintenance: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) DeleteMaintenance(ctx context.Context, vehicleID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM maintenance WHERE id = ? AND vehicle_id = ?`, id, vehicleID)
	if err != nil {
		return fmt.Errorf("delete maintenance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete maintenance rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) SetMaintenanceReceipt(ctx context.Context, vehicleID, id int64, path string) (core.Maintenance, error) {
	m, err := r.GetMaintenance(ctx, vehicleID, id)
	if err != nil {
		return core.Maintenance{}, err
	}
	m.ReceiptPath = path

	_, err = r.db.ExecContext(ctx,
		`UPDATE maintenance SET receipt_path = ? WHERE id = ? AND vehicle_id = ?`,
		path, id, vehicleID)
	if err != nil {
		return core.Maintenance{}, fmt.Errorf("set maintenance receipt: %w", err)
	}
	return m, nil
}

// Mods

const modColumns = `id, vehicle_id, name, description, date, cost_cents, parts_list, created_at`

func scanMod(row interface{ Scan(...any) error }) (core.Mod, error) {
	var (
		m    core.Mod
		date string
		cost sql.NullInt64
	)
	err := row.Scan(&m.ID, &m.VehicleID, &m.Name, &m.Description, &date, &cost,
		&m.PartsList, &m.CreatedAt)
	if err != nil {
		return core.Mod{}, err
	}
	m.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Mod{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	m.Cost = moneyPtr(cost)
	return m, nil
}

func (r *SQLiteRepository) CreateMod(ctx context.Context, m core.Mod) (core.Mod, error) {
	m.Date = m.Date.Truncate()
	if err := m.Validate(); err != nil {
		return core.Mod{}, err
	}
	if _, err := r.GetVehicle(ctx, m.VehicleID); err != nil {
		return core.Mod{}, err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO mods (vehicle_id, name, description, date, cost_cents, parts_list, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.VehicleID, m.Name, m.Description, m.Date.String(), nullCents(m.Cost),
		m.PartsList, now)
	if err != nil {
		return core.Mod{}, fmt.Errorf("insert mod: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Mod{}, fmt.Errorf("mod insert id: %w", err)
	}
	m.ID = id
	m.CreatedAt = now

	slog.InfoContext(ctx, "Mod created",
		"id", m.ID, "vehicle_id", m.VehicleID, "name", m.Name, "date", m.Date.String())
	return m, nil
}

func (r *SQLiteRepository) GetMod(ctx context.Context, vehicleID, id int64) (core.Mod, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+modColumns+` FROM mods WHERE id = ? AND vehicle_id = ?`, id, vehicleID)
	m, err := scanMod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Mod{}, core.ErrNotFound
	}
	if err != nil {
		return core.Mod{}, fmt.Errorf("get mod: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) ListModsByVehicle(ctx context.Context, vehicleID int64) ([]core.Mod, error) {
	if _, err := r.GetVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+modColumns+` FROM mods WHERE vehicle_id = ? ORDER BY date DESC, id DESC`,
		vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list mods: %w", err)
	}
	defer rows.Close()

	var mods []core.Mod
	for rows.Next() {
		m, err := scanMod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mod: %w", err)
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}

func (r *SQLiteRepository) UpdateMod(ctx context.Context, vehicleID, id int64, p core.ModPatch) (core.Mod, error) {
	m, err := r.GetMod(ctx, vehicleID, id)
	if err != nil {
		return core.Mod{}, err
	}
	if err := p.Apply(&m); err != nil {
		return core.Mod{}, err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE mods SET name = ?, description = ?, date = ?, cost_cents = ?, parts_list = ?
		WHERE id = ? AND vehicle_id = ?`,
		m.Name, m.Description, m.Date.String(), nullCents(m.Cost), m.PartsList, id, vehicleID)
	if err != nil {
		return core.Mod{}, fmt.Errorf("update mod: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) DeleteMod(ctx context.Context, vehicleID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM mods WHERE id = ? AND vehicle_id = ?`, id, vehicleID)
	if err != nil {
		return fmt.Errorf("delete mod: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete mod rows: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Users

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, hashed_password, created_at FROM users WHERE username = ?`,
		username).Scan(&u.ID, &u.Username, &u.HashedPassword, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// EnsureUser inserts the configured credentials only when the users table
// is empty, so the instance keeps exactly one account.
func (r *SQLiteRepository) EnsureUser(ctx context.Context, username, hashedPassword string) (core.User, error) {
	var existing core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, hashed_password, created_at FROM users ORDER BY id LIMIT 1`).
		Scan(&existing.ID, &existing.Username, &existing.HashedPassword, &existing.CreatedAt)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("check existing user: %w", err)
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, hashed_password, created_at) VALUES (?, ?, ?)`,
		username, hashedPassword, now)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}

	slog.InfoContext(ctx, "User account created", "username", username)
	return core.User{ID: id, Username: username, HashedPassword: hashedPassword, CreatedAt: now}, nil
}

// Dashboard sources

func (r *SQLiteRepository) ListMaintenanceInPeriod(ctx context.Context, p core.Period) ([]core.Maintenance, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance`
	args := []any{}
	if !p.AllTime {
		query += ` WHERE date >= ? AND date <= ?`
		args = append(args, fmt.Sprintf("%04d-01-01", p.Year), fmt.Sprintf("%04d-12-31", p.Year))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list maintenance in period: %w", err)
	}
	defer rows.Close()

	var records []core.Maintenance
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan maintenance: %w", err)
		}
		records = append(records, m)
	}
	return records, rows.Err()
}

func (r *SQLiteRepository) ListModsInPeriod(ctx context.Context, p core.Period) ([]core.Mod, error) {
	query := `SELECT ` + modColumns + ` FROM mods`
	args := []any{}
	if !p.AllTime {
		query += ` WHERE date >= ? AND date <= ?`
		args = append(args, fmt.Sprintf("%04d-01-01", p.Year), fmt.Sprintf("%04d-12-31", p.Year))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mods in period: %w", err)
	}
	defer rows.Close()

	var mods []core.Mod
	for rows.Next() {
		m, err := scanMod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mod: %w", err)
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}
