package database

import (
	"context"
	"database/sql"
	"fmt"

	"notification_platform/internal/domain/channel"
)

var ErrChannelNotFound = fmt.Errorf("channel not found")

// PostgresChannelRepository reads the channel registry. The engine only
// resolves channels at boot; registry rows are managed by the admin surface.
type PostgresChannelRepository struct {
	db *sql.DB
}

func NewPostgresChannelRepository(db *sql.DB) *PostgresChannelRepository {
	return &PostgresChannelRepository{db: db}
}

func (r *PostgresChannelRepository) GetByName(ctx context.Context, name channel.Name) (*channel.Channel, error) {
	query := `SELECT id, name, is_active FROM channels WHERE name = $1`
	ch := channel.Channel{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&ch.ID, &ch.Name, &ch.IsActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("error getting channel by name: %w", err)
	}
	return &ch, nil
}
