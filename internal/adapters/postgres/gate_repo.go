package postgres

import (
	"context"

	"github.com/emberline/faregate/internal/core/domain"
)

// GateRepo implements ports.GateRepository.
type GateRepo struct {
	db *DB
}

func NewGateRepo(db *DB) *GateRepo {
	return &GateRepo{db: db}
}

func (r *GateRepo) Upsert(ctx context.Context, g *domain.Gate) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO gates (id, world, x, y, z, system_id, station_id, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET world = EXCLUDED.world, x = EXCLUDED.x, y = EXCLUDED.y, z = EXCLUDED.z,
		    station_id = EXCLUDED.station_id, enabled = EXCLUDED.enabled
	`, g.ID, g.Position.World, g.Position.X, g.Position.Y, g.Position.Z,
		g.SystemID, g.StationID, g.Enabled)
	return err
}

func (r *GateRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM gates WHERE id = $1`, id)
	return err
}

func (r *GateRepo) List(ctx context.Context) ([]domain.Gate, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, world, x, y, z, system_id, station_id, enabled
		FROM gates ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gates []domain.Gate
	for rows.Next() {
		var g domain.Gate
		if err := rows.Scan(&g.ID, &g.Position.World, &g.Position.X, &g.Position.Y,
			&g.Position.Z, &g.SystemID, &g.StationID, &g.Enabled); err != nil {
			return nil, err
		}
		gates = append(gates, g)
	}
	return gates, rows.Err()
}
