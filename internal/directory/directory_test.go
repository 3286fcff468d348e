package directory

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"campus_wayfinder/internal/cache"
	"campus_wayfinder/internal/geo"
	"campus_wayfinder/internal/models"
	"campus_wayfinder/internal/overlay"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func newTestDirectory(t *testing.T) (*Directory, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return New(db, cache.NewRegistry(nil), time.Minute), db
}

func seeded(t *testing.T) (*Directory, *gorm.DB) {
	t.Helper()
	d, db := newTestDirectory(t)
	n, err := d.Seed(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return d, db
}

func siteByName(t *testing.T, d *Directory, name string) models.Site {
	t.Helper()
	sites, err := d.Sites(context.Background())
	require.NoError(t, err)
	for _, s := range sites {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("site %q not found", name)
	return models.Site{}
}

func strp(s string) *string { return &s }

func uintp(v uint) *uint { return &v }

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestSeedIsIdempotent(t *testing.T) {
	d, _ := seeded(t)
	n, err := d.Seed(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	sites, err := d.Sites(context.Background())
	require.NoError(t, err)
	names := []string{sites[0].Name, sites[1].Name, sites[2].Name}
	assert.Equal(t, []string{"Chestnut Hill", "Faulkner Hospital", "Patriot"}, names)
}

func TestCreateSiteValidates(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	err := d.CreateSite(ctx, &models.Site{Name: ""})
	assert.ErrorIs(t, err, ErrInvalid)

	err = d.CreateSite(ctx, &models.Site{Name: "Annex", ParkingPrice: -1})
	assert.ErrorIs(t, err, ErrInvalid)

	err = d.CreateSite(ctx, &models.Site{Name: "Annex", ParkingPrice: 2.505})
	assert.ErrorIs(t, err, ErrInvalid)

	err = d.CreateSite(ctx, &models.Site{Name: "Annex", ParkingPrice: 2.5, LobbyLocation: models.MapLocation{Latitude: 95}})
	assert.ErrorIs(t, err, ErrInvalid)

	require.NoError(t, d.CreateSite(ctx, &models.Site{Name: "Annex", ParkingPrice: 2.5}))
}

func TestSitesCacheInvalidatedOnMutation(t *testing.T) {
	d, db := seeded(t)
	ctx := context.Background()

	sites, err := d.Sites(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 3)

	// a write behind the directory's back is not visible until invalidated
	require.NoError(t, db.Create(&models.Site{Name: "Hidden"}).Error)
	sites, err = d.Sites(ctx)
	require.NoError(t, err)
	assert.Len(t, sites, 3)

	require.NoError(t, d.CreateSite(ctx, &models.Site{Name: "Annex"}))
	sites, err = d.Sites(ctx)
	require.NoError(t, err)
	assert.Len(t, sites, 5)
}

func TestUpdateSitePartial(t *testing.T) {
	d, _ := seeded(t)
	ctx := context.Background()
	patriot := siteByName(t, d, "Patriot")

	price := 6.25
	updated, err := d.UpdateSite(ctx, patriot.ID, SitePatch{ParkingPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, 6.25, updated.ParkingPrice)
	assert.Equal(t, "Patriot", updated.Name)
	assert.Equal(t, patriot.LobbyLocation, updated.LobbyLocation)

	got, err := d.Site(ctx, patriot.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.25, got.ParkingPrice)

	_, err = d.UpdateSite(ctx, 9999, SitePatch{Name: strp("x")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = d.UpdateSite(ctx, patriot.ID, SitePatch{Name: strp("")})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDeleteSiteDetachesServices(t *testing.T) {
	d, _ := seeded(t)
	ctx := context.Background()
	patriot := siteByName(t, d, "Patriot")

	svc := &models.Service{Name: "Cardiology", Specialties: models.TextList{"Heart"}, BuildingID: uintp(patriot.ID)}
	require.NoError(t, d.CreateService(ctx, svc))

	require.NoError(t, d.SaveOverlay(ctx, patriot.ID, &overlay.Overlay{
		Image: tinyPNG(t), ContentType: "image/png",
		TopLeft:     &geo.Point{Latitude: 42.337, Longitude: -71.106},
		BottomRight: &geo.Point{Latitude: 42.336, Longitude: -71.107},
	}))

	require.NoError(t, d.DeleteSite(ctx, patriot.ID))
	assert.ErrorIs(t, d.DeleteSite(ctx, patriot.ID), ErrNotFound)

	got, err := d.Service(ctx, svc.ID)
	require.NoError(t, err)
	assert.Nil(t, got.BuildingID)
	assert.Nil(t, got.Building)

	_, err = d.Overlay(ctx, patriot.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServicesCRUD(t *testing.T) {
	d, _ := seeded(t)
	ctx := context.Background()
	faulkner := siteByName(t, d, "Faulkner Hospital")

	svc := &models.Service{
		Name:        "Radiology",
		Specialties: models.TextList{"X-Ray", "MRI"},
		Floor:       models.TextList{"1", "2"},
		Phone:       "617-555-0100",
		BuildingID:  uintp(faulkner.ID),
	}
	require.NoError(t, d.CreateService(ctx, svc))

	services, err := d.Services(ctx)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, models.TextList{"X-Ray", "MRI"}, services[0].Specialties)
	assert.Equal(t, models.TextList{"1", "2"}, services[0].Floor)
	require.NotNil(t, services[0].Building)
	assert.Equal(t, "Faulkner Hospital", services[0].Building.Name)

	specs := []string{"CT"}
	updated, err := d.UpdateService(ctx, svc.ID, ServicePatch{Specialties: &specs, ClearBuilding: true})
	require.NoError(t, err)
	assert.Equal(t, models.TextList{"CT"}, updated.Specialties)
	assert.Nil(t, updated.BuildingID)
	assert.Equal(t, "Radiology", updated.Name)

	_, err = d.UpdateService(ctx, svc.ID, ServicePatch{BuildingID: uintp(4242)})
	assert.ErrorIs(t, err, ErrInvalid)

	empty := []string{}
	_, err = d.UpdateService(ctx, svc.ID, ServicePatch{Specialties: &empty})
	assert.ErrorIs(t, err, ErrInvalid)

	require.NoError(t, d.DeleteService(ctx, svc.ID))
	assert.ErrorIs(t, d.DeleteService(ctx, svc.ID), ErrNotFound)
	services, err = d.Services(ctx)
	require.NoError(t, err)
	assert.Empty(t, services)
}

func TestServiceRequiresSpecialty(t *testing.T) {
	d, _ := newTestDirectory(t)
	err := d.CreateService(context.Background(), &models.Service{Name: "Lab"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestOverlayRoundTripAndRejectsIncomplete(t *testing.T) {
	d, _ := seeded(t)
	ctx := context.Background()
	site := siteByName(t, d, "Chestnut Hill")

	_, err := d.Overlay(ctx, site.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = d.SaveOverlay(ctx, site.ID, &overlay.Overlay{Image: tinyPNG(t), ContentType: "image/png"})
	assert.ErrorIs(t, err, overlay.ErrIncompleteOverlay)

	img := tinyPNG(t)
	require.NoError(t, d.SaveOverlay(ctx, site.ID, &overlay.Overlay{
		Image: img, ContentType: "image/png", RotationDegrees: 45,
		TopLeft:     &geo.Point{Latitude: 42.325, Longitude: -71.167},
		BottomRight: &geo.Point{Latitude: 42.324, Longitude: -71.168},
	}))

	row, err := d.Overlay(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, img, row.Image)
	assert.Equal(t, 45.0, row.RotationDegrees)
	assert.Equal(t, 42.325, row.TopLeft.Latitude)

	// lists never carry the raster
	listed, err := d.Site(ctx, site.ID)
	require.NoError(t, err)
	assert.Nil(t, listed.Overlay)

	require.NoError(t, d.SaveOverlay(ctx, site.ID, nil))
	_, err = d.Overlay(ctx, site.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAlignment(t *testing.T) {
	d, _ := seeded(t)
	ctx := context.Background()
	site := siteByName(t, d, "Patriot")

	ov, locations, err := d.SessionSeed(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, overlay.Empty, ov.State())
	assert.Equal(t, "45 Francis St, Boston, MA 02115", locations[overlay.AnchorLobby].Address)

	moved := geo.Point{Latitude: 42.3365, Longitude: -71.1066}
	tl, br := overlay.DefaultBounds(moved)
	draft := overlay.Draft{
		SiteID: site.ID,
		Overlay: overlay.Overlay{
			Image: tinyPNG(t), ContentType: "image/png", RotationDegrees: 90,
			TopLeft: &tl, BottomRight: &br,
		},
		Locations: map[overlay.Anchor]overlay.Location{
			overlay.AnchorLobby:   {Point: moved, Address: "47 Francis St"},
			overlay.AnchorParking: {Point: locations[overlay.AnchorParking].Point},
		},
	}
	require.NoError(t, d.SaveAlignment(ctx, draft))

	got, err := d.Site(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, moved.Latitude, got.LobbyLocation.Latitude)
	assert.Equal(t, "47 Francis St", got.LobbyLocation.ClosestStreetAddress)
	// an anchor without a resolved address keeps the stored one
	assert.Equal(t, "45 Francis St, Boston, MA 02115", got.ParkingLocation.ClosestStreetAddress)

	ov, _, err = d.SessionSeed(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, overlay.Aligned, ov.State())
	assert.Equal(t, 90.0, ov.RotationDegrees)
	assert.Equal(t, tl, *ov.TopLeft)

	// committing a cleared overlay removes it
	draft.Overlay = overlay.Overlay{}
	require.NoError(t, d.SaveAlignment(ctx, draft))
	_, err = d.Overlay(ctx, site.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, d.SaveAlignment(ctx, overlay.Draft{SiteID: 777}), ErrNotFound)
}

func TestNearest(t *testing.T) {
	d, _ := seeded(t)
	ranked, err := d.Nearest(context.Background(), geo.Point{Latitude: 42.3364, Longitude: -71.1064}, 2)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Patriot", ranked[0].Name)
	assert.Equal(t, geo.Near, ranked[0].Proximity)
	assert.Less(t, ranked[0].DistanceMeters, ranked[1].DistanceMeters)
}

func TestGeoJSON(t *testing.T) {
	d, _ := seeded(t)
	ctx := context.Background()
	site := siteByName(t, d, "Faulkner Hospital")
	require.NoError(t, d.SaveOverlay(ctx, site.ID, &overlay.Overlay{
		Image: tinyPNG(t), ContentType: "image/png",
		TopLeft:     &geo.Point{Latitude: 42.3005, Longitude: -71.1268},
		BottomRight: &geo.Point{Latitude: 42.3000, Longitude: -71.1273},
	}))

	markers, areas, err := d.GeoJSON(ctx)
	require.NoError(t, err)
	assert.Len(t, markers, 9)
	require.Len(t, areas, 1)
	assert.Equal(t, "Faulkner Hospital", areas[0].Name)
	assert.Equal(t, 42.3005, areas[0].NorthEast.Latitude)
}

func TestAdminAccounts(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	user, err := d.CreateAdmin(ctx, " Admin@Example.org ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.org", user.Email)
	assert.Equal(t, RoleAdmin, user.Role)
	assert.NotEqual(t, "s3cret", user.Password)

	_, err = d.CreateAdmin(ctx, "admin@example.org", "other")
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, err := d.Authenticate(ctx, "ADMIN@example.org", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = d.Authenticate(ctx, "admin@example.org", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = d.Authenticate(ctx, "nobody@example.org", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
