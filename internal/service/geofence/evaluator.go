package geofence

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shift"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/utils"
)

// DefaultRadiusMeters applies when a shop has no radius configured.
const DefaultRadiusMeters = 100

// Evaluator decides whether a clock-in happened on site and, when it did not,
// whether a remote approval covers it.
type Evaluator struct {
	approvals     shift.RemoteApprovalRepository
	defaultRadius float64
}

func NewEvaluator(approvals shift.RemoteApprovalRepository, defaultRadius float64) *Evaluator {
	if defaultRadius <= 0 {
		defaultRadius = DefaultRadiusMeters
	}
	return &Evaluator{
		approvals:     approvals,
		defaultRadius: defaultRadius,
	}
}

// Radius returns the geofence radius for site.
func (e *Evaluator) Radius(site shop.Shop) float64 {
	if site.GeofenceRadiusMeters > 0 {
		return site.GeofenceRadiusMeters
	}
	return e.defaultRadius
}

// Evaluate compares the clock-in coordinates with the shop location at the
// instant at. Without coordinates on either side the result is Unknown and
// treated as on site.
func (e *Evaluator) Evaluate(ctx context.Context, employeeID string, lat, lon *float64, site shop.Shop, at time.Time) (shift.Remoteness, error) {
	if !site.HasLocation() || lat == nil || lon == nil ||
		!utils.IsValidCoordinate(*site.Latitude, *site.Longitude) {
		return shift.Remoteness{OnSite: true, Unknown: true}, nil
	}

	distance := utils.CalculateHaversineDistance(*lat, *lon, *site.Latitude, *site.Longitude)
	if distance <= e.Radius(site) {
		return shift.Remoteness{OnSite: true, DistanceMeters: distance}, nil
	}

	approvals, err := e.approvals.ListActiveByEmployee(ctx, employeeID, site.ID)
	if err != nil {
		return shift.Remoteness{}, fmt.Errorf("failed to list remote approvals: %w", err)
	}

	local := at.In(site.Location())
	preApproved := false
	for _, a := range approvals {
		if a.IsValidAt(local) {
			preApproved = true
			break
		}
	}

	return shift.Remoteness{
		OnSite:         false,
		DistanceMeters: distance,
		PreApproved:    preApproved,
	}, nil
}
