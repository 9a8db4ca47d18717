package postgresql

import (
	"context"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
)

type shopRepository struct {
	db *database.DB
}

const shopSelect = `
	SELECT id, name, latitude, longitude, geofence_radius_m, timezone,
		   reward_points_needed, reward_description, plan_tier, grace_period_ends_at,
		   created_at, updated_at
	FROM shops
	WHERE id = $1
`

// GetByID implements shop.ShopRepository.
func (r *shopRepository) GetByID(ctx context.Context, id string) (shop.Shop, error) {
	return r.get(ctx, shopSelect, id)
}

// GetByIDForUpdate implements shop.ShopRepository.
func (r *shopRepository) GetByIDForUpdate(ctx context.Context, id string) (shop.Shop, error) {
	return r.get(ctx, shopSelect+" FOR UPDATE", id)
}

func (r *shopRepository) get(ctx context.Context, query string, id string) (shop.Shop, error) {
	q := GetQuerier(ctx, r.db)

	var (
		s    shop.Shop
		tier string
	)
	err := q.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.GeofenceRadiusMeters, &s.Timezone,
		&s.RewardPointsNeeded, &s.RewardDescription, &tier, &s.GracePeriodEndsAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return shop.Shop{}, shop.ErrShopNotFound
		}
		return shop.Shop{}, database.NewStoreError("get shop", err)
	}
	s.PlanTier = shop.PlanTier(tier)

	return s, nil
}

// UpdatePlan implements shop.ShopRepository.
func (r *shopRepository) UpdatePlan(ctx context.Context, id string, tier shop.PlanTier, gracePeriodEndsAt *time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE shops
		SET plan_tier = $2,
			grace_period_ends_at = $3,
			updated_at = NOW()
		WHERE id = $1
	`

	cmd, err := q.Exec(ctx, query, id, string(tier), gracePeriodEndsAt)
	if err != nil {
		return database.NewStoreError("update shop plan", err)
	}
	if cmd.RowsAffected() == 0 {
		return shop.ErrShopNotFound
	}
	return nil
}

func NewShopRepository(db *database.DB) shop.ShopRepository {
	return &shopRepository{db: db}
}
