package roles

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Proton-105/leave-bot/internal/domain"
)

// SQLProvider reads member roles from the member_roles table.
type SQLProvider struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSQLProvider creates a provider backed by db.
func NewSQLProvider(db *sql.DB, log *slog.Logger) *SQLProvider {
	if log == nil {
		log = slog.Default()
	}

	return &SQLProvider{
		db:  db,
		log: log,
	}
}

// AssignableRoles returns the user's roles ordered by position then label.
func (p *SQLProvider) AssignableRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	const query = `
		SELECT role_id, label
		FROM member_roles
		WHERE user_id = $1
		ORDER BY position, label
	`

	rows, err := p.db.QueryContext(ctx, query, userID)
	if err != nil {
		p.log.Error("failed to query member roles", slog.String("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("select member roles: %w", err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Label); err != nil {
			return nil, fmt.Errorf("scan member role: %w", err)
		}
		roles = appendAssignable(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member roles: %w", err)
	}

	return roles, nil
}

// HealthCheck pings the database.
func (p *SQLProvider) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
