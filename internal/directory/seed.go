package directory

import (
	"context"

	"github.com/sirupsen/logrus"

	"campus_wayfinder/internal/models"
)

func loc(lat, lng float64, address string) models.MapLocation {
	return models.MapLocation{Latitude: lat, Longitude: lng, ClosestStreetAddress: address}
}

// SeedSites are the campus buildings a fresh database starts with.
var SeedSites = []models.Site{
	{
		Name:            "Faulkner Hospital",
		ParkingPrice:    7,
		LobbyLocation:   loc(42.3002, -71.127, "1153 Centre St, Boston, MA 02130"),
		ParkingLocation: loc(42.3005, -71.1265, "1153 Centre St, Boston, MA 02130"),
		DropOffLocation: loc(42.3003, -71.1272, "1153 Centre St, Boston, MA 02130"),
	},
	{
		Name:            "Chestnut Hill",
		ParkingPrice:    5,
		LobbyLocation:   loc(42.3241, -71.1676, "850 Boylston St, Chestnut Hill, MA 02467"),
		ParkingLocation: loc(42.3244, -71.1672, "850 Boylston St, Chestnut Hill, MA 02467"),
		DropOffLocation: loc(42.3242, -71.1678, "850 Boylston St, Chestnut Hill, MA 02467"),
	},
	{
		Name:            "Patriot",
		ParkingPrice:    5,
		LobbyLocation:   loc(42.3364, -71.1065, "45 Francis St, Boston, MA 02115"),
		ParkingLocation: loc(42.3363, -71.1057, "45 Francis St, Boston, MA 02115"),
		DropOffLocation: loc(42.3361, -71.1063, "45 Francis St, Boston, MA 02115"),
	},
}

// Seed inserts each seed site that is not already present by name and
// reports how many were added.
func (d *Directory) Seed(ctx context.Context) (int, error) {
	added := 0
	for _, s := range SeedSites {
		var count int64
		if err := d.db.WithContext(ctx).Model(&models.Site{}).Where("name = ?", s.Name).Count(&count).Error; err != nil {
			return added, err
		}
		if count > 0 {
			continue
		}
		site := s
		if err := d.CreateSite(ctx, &site); err != nil {
			return added, err
		}
		logrus.WithFields(logrus.Fields{"site_id": site.ID, "name": site.Name}).Info("seeded site")
		added++
	}
	return added, nil
}
