package postgres

import (
	"context"

	"github.com/emberline/faregate/internal/core/domain"
)

// StationRepo implements ports.StationRepository.
type StationRepo struct {
	db *DB
}

func NewStationRepo(db *DB) *StationRepo {
	return &StationRepo{db: db}
}

func (r *StationRepo) Upsert(ctx context.Context, s *domain.Station) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO stations (id, name, system_id, world, x, y, z, zone, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, world = EXCLUDED.world,
		    x = EXCLUDED.x, y = EXCLUDED.y, z = EXCLUDED.z,
		    zone = EXCLUDED.zone, status = EXCLUDED.status
	`, s.ID, s.Name, s.SystemID, s.Position.World, s.Position.X, s.Position.Y, s.Position.Z,
		s.Zone, string(s.Status), s.CreatedAt)
	return err
}

func (r *StationRepo) Delete(ctx context.Context, systemID, stationID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM stations WHERE system_id = $1 AND id = $2`, systemID, stationID)
	return err
}

func (r *StationRepo) ListBySystem(ctx context.Context, systemID string) ([]domain.Station, error) {
	return r.query(ctx, `
		SELECT id, name, system_id, world, x, y, z, zone, status, created_at
		FROM stations WHERE system_id = $1 ORDER BY name
	`, systemID)
}

func (r *StationRepo) List(ctx context.Context) ([]domain.Station, error) {
	return r.query(ctx, `
		SELECT id, name, system_id, world, x, y, z, zone, status, created_at
		FROM stations ORDER BY system_id, name
	`)
}

func (r *StationRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Station, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []domain.Station
	for rows.Next() {
		var s domain.Station
		var status string
		if err := rows.Scan(&s.ID, &s.Name, &s.SystemID, &s.Position.World,
			&s.Position.X, &s.Position.Y, &s.Position.Z, &s.Zone, &status, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Status = domain.StationStatus(status)
		stations = append(stations, s)
	}
	return stations, rows.Err()
}
