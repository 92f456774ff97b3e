package persistence

import (
	"context"

	"github.com/google/uuid"

	domain "github.com/oncall/oncall/internal/roster/domain"
	"github.com/oncall/oncall/internal/shared/infrastructure/database"
)

// SQLSubscriptionRepository implements domain.SubscriptionRepository.
type SQLSubscriptionRepository struct {
	conn database.Connection
}

// NewSQLSubscriptionRepository creates the repository.
func NewSQLSubscriptionRepository(conn database.Connection) *SQLSubscriptionRepository {
	return &SQLSubscriptionRepository{conn: conn}
}

func (r *SQLSubscriptionRepository) rebind(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

// Subscribe adds a team_subscription row.
func (r *SQLSubscriptionRepository) Subscribe(ctx context.Context, teamID, subscriptionID, roleID uuid.UUID) error {
	query := r.rebind(`
		INSERT INTO team_subscription (team_id, subscription_id, role_id)
		VALUES (?, ?, ?)
		ON CONFLICT (team_id, subscription_id, role_id) DO NOTHING
	`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query,
		teamID.String(), subscriptionID.String(), roleID.String())
	return err
}

// Unsubscribe removes a team_subscription row.
func (r *SQLSubscriptionRepository) Unsubscribe(ctx context.Context, teamID, subscriptionID, roleID uuid.UUID) error {
	query := r.rebind(`DELETE FROM team_subscription WHERE team_id = ? AND subscription_id = ? AND role_id = ?`)
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, query,
		teamID.String(), subscriptionID.String(), roleID.String())
	return err
}

// FindByTeam lists the teams this team subscribes to.
func (r *SQLSubscriptionRepository) FindByTeam(ctx context.Context, teamID uuid.UUID) ([]domain.Subscription, error) {
	query := r.rebind(`SELECT team_id, subscription_id, role_id FROM team_subscription WHERE team_id = ?`)
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, teamID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Subscription
	for rows.Next() {
		var team, sub, role string
		if err := rows.Scan(&team, &sub, &role); err != nil {
			return nil, err
		}
		teamParsed, err := uuid.Parse(team)
		if err != nil {
			return nil, err
		}
		subParsed, err := uuid.Parse(sub)
		if err != nil {
			return nil, err
		}
		roleParsed, err := uuid.Parse(role)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Subscription{TeamID: teamParsed, SubscriptionID: subParsed, RoleID: roleParsed})
	}
	return out, rows.Err()
}
