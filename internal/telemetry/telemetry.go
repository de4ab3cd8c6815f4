// Package telemetry stores simulation runs in SQLite for later analysis. The
// schema is versioned with embedded migrations applied on Open.
package telemetry

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/cxd309/esprit-sim/internal/city"
	"github.com/cxd309/esprit-sim/internal/engine"
	"github.com/cxd309/esprit-sim/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a telemetry database.
type Store struct {
	db *sql.DB
}

// Run is one stored simulation run.
type Run struct {
	RunID           string
	SimulationID    string
	RunTime         float64
	TimeStep        float64
	ControlInterval int
}

// Sample is one vehicle at one logged timestamp.
type Sample struct {
	Timestamp     float64
	VehicleID     string
	X, Y          float64
	HeadingDeg    float64
	Speed         float64
	RPM           float64
	Gear          string
	EngineState   string
	DriverState   string
	TargetSpeed   float64
	Accelerator   float64
	Brake         float64
	Clutch        float64
	SteeringWheel float64
	Street        string
	Lane          int
}

// Open opens or creates the database at path and migrates it to the latest
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory:
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{logging.L().Sugar()}
	return m, nil
}

// migrateUp applies all pending migrations. The migrate instance is not
// closed because that would close the shared connection.
func (s *Store) migrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Version returns the schema version and whether a migration failed halfway.
func (s *Store) Version() (uint, bool, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// migrateLogger routes migrate's progress messages to the process logger.
type migrateLogger struct {
	log *zap.SugaredLogger
}

func (l migrateLogger) Printf(format string, v ...any) { l.log.Debugf("[migrate] "+format, v...) }

func (l migrateLogger) Verbose() bool { return false }

// SaveRun stores a run log under a new run ID and returns it.
func (s *Store) SaveRun(log engine.SimulationLog) (string, error) {
	runID := uuid.NewString()
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	meta := log.Meta
	if _, err := tx.Exec(
		`INSERT INTO runs (run_id, simulation_id, run_time, time_step, control_interval) VALUES (?, ?, ?, ?, ?)`,
		runID, meta.SimulationID, meta.RunTime, meta.TimeStep, meta.ControlInterval,
	); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO samples (
		run_id, timestamp, vehicle_id, x, y, heading_deg, speed, rpm, gear, engine_state,
		driver_state, target_speed, accelerator, brake, clutch, steering_wheel, street, lane
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()
	for _, smp := range Flatten(log) {
		if _, err := stmt.Exec(runID, smp.Timestamp, smp.VehicleID, smp.X, smp.Y, smp.HeadingDeg,
			smp.Speed, smp.RPM, smp.Gear, smp.EngineState, smp.DriverState, smp.TargetSpeed,
			smp.Accelerator, smp.Brake, smp.Clutch, smp.SteeringWheel, smp.Street, smp.Lane,
		); err != nil {
			return "", fmt.Errorf("failed to insert sample for %q at t=%.2f: %w", smp.VehicleID, smp.Timestamp, err)
		}
	}

	for _, d := range log.Departures {
		if _, err := tx.Exec(`INSERT INTO departures (run_id, vehicle_id, timestamp, x, y) VALUES (?, ?, ?, ?, ?)`,
			runID, d.VehicleID, d.Timestamp, d.Position.X, d.Position.Y); err != nil {
			return "", fmt.Errorf("failed to insert departure of %q: %w", d.VehicleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	logging.L().Info("run saved", zap.String("run_id", runID), zap.String("simulation_id", meta.SimulationID))
	return runID, nil
}

// Flatten turns a run log into one sample per vehicle per row.
func Flatten(log engine.SimulationLog) []Sample {
	var out []Sample
	for _, row := range log.Output {
		for _, v := range row.VehicleLogs {
			d := v.Dashboard
			out = append(out, Sample{
				Timestamp:     row.Timestamp,
				VehicleID:     v.ID,
				X:             v.Position.X,
				Y:             v.Position.Y,
				HeadingDeg:    v.HeadingDeg,
				Speed:         d.Speed,
				RPM:           d.RPM,
				Gear:          d.Gear,
				EngineState:   string(d.EngineState),
				DriverState:   string(v.DriverState),
				TargetSpeed:   v.TargetSpeed,
				Accelerator:   d.Accelerator,
				Brake:         d.Brake,
				Clutch:        d.Clutch,
				SteeringWheel: d.SteeringWheel,
				Street:        v.Street,
				Lane:          v.Lane,
			})
		}
	}
	return out
}

// Runs returns every stored run, oldest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT run_id, simulation_id, run_time, time_step, control_interval
		FROM runs ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.SimulationID, &r.RunTime, &r.TimeStep, &r.ControlInterval); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Samples returns a vehicle's samples for a run in time order. An empty
// vehicleID returns every vehicle's.
func (s *Store) Samples(runID, vehicleID string) ([]Sample, error) {
	rows, err := s.db.Query(`SELECT timestamp, vehicle_id, x, y, heading_deg, speed, rpm, gear,
		engine_state, driver_state, target_speed, accelerator, brake, clutch, steering_wheel, street, lane
		FROM samples WHERE run_id = ? AND (? = '' OR vehicle_id = ?)
		ORDER BY timestamp, rowid`, runID, vehicleID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var smp Sample
		if err := rows.Scan(&smp.Timestamp, &smp.VehicleID, &smp.X, &smp.Y, &smp.HeadingDeg,
			&smp.Speed, &smp.RPM, &smp.Gear, &smp.EngineState, &smp.DriverState, &smp.TargetSpeed,
			&smp.Accelerator, &smp.Brake, &smp.Clutch, &smp.SteeringWheel, &smp.Street, &smp.Lane,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		out = append(out, smp)
	}
	return out, rows.Err()
}

// Departures returns the vehicles that left the city during a run.
func (s *Store) Departures(runID string) ([]engine.Departure, error) {
	rows, err := s.db.Query(`SELECT vehicle_id, timestamp, x, y FROM departures
		WHERE run_id = ? ORDER BY timestamp, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query departures: %w", err)
	}
	defer rows.Close()

	var out []engine.Departure
	for rows.Next() {
		var d engine.Departure
		var pos city.Coordinate
		if err := rows.Scan(&d.VehicleID, &d.Timestamp, &pos.X, &pos.Y); err != nil {
			return nil, fmt.Errorf("failed to scan departure: %w", err)
		}
		d.Position = pos
		out = append(out, d)
	}
	return out, rows.Err()
}
