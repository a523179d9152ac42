package postgres

import (
	"context"

	"github.com/emberline/faregate/internal/core/domain"
)

// RouteRepo implements ports.RouteRepository. The ordered station list is
// stored as a text array; order is load-bearing.
type RouteRepo struct {
	db *DB
}

func NewRouteRepo(db *DB) *RouteRepo {
	return &RouteRepo{db: db}
}

func (r *RouteRepo) Upsert(ctx context.Context, route *domain.Route) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO routes (id, name, system_id, stations, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, stations = EXCLUDED.stations
	`, route.ID, route.Name, route.SystemID, route.Stations, route.CreatedAt)
	return err
}

func (r *RouteRepo) Delete(ctx context.Context, systemID, name string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM routes WHERE system_id = $1 AND id = $2`, systemID, name)
	return err
}

func (r *RouteRepo) List(ctx context.Context) ([]domain.Route, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, system_id, stations, created_at
		FROM routes ORDER BY system_id, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []domain.Route
	for rows.Next() {
		var route domain.Route
		if err := rows.Scan(&route.ID, &route.Name, &route.SystemID,
			&route.Stations, &route.CreatedAt); err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}
