package properties

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "findam-backend/internal/common/errors"
	"findam-backend/internal/common/logger"
	"findam-backend/internal/models"
	"findam-backend/internal/search"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	ids       []string
	searchErr error
	indexed   []search.PropertyDoc
	deleted   []string
}

func (f *fakeIndex) IndexProperty(_ context.Context, doc search.PropertyDoc) error {
	f.indexed = append(f.indexed, doc)
	return nil
}

func (f *fakeIndex) DeleteProperty(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ search.Query) ([]string, int64, error) {
	if f.searchErr != nil {
		return nil, 0, f.searchErr
	}
	return f.ids, int64(len(f.ids)), nil
}

func newTestService(t *testing.T, index search.Index) (*Service, sqlmock.Sqlmock, redismock.ClientMock) {
	t.Helper()

	db, dbMock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rdb, redisMock := redismock.NewClientMock()

	svc := NewService(NewRepository(db), rdb, index, logger.NewTestLogger(t))
	return svc, dbMock, redisMock
}

func propertyRows(p *models.Property) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "title", "description", "property_type", "capacity", "bedrooms", "bathrooms",
		"city_id", "neighborhood_id", "address", "latitude", "longitude",
		"price_per_night", "price_per_week", "price_per_month", "cleaning_fee", "security_deposit",
		"allow_discount", "cancellation_policy", "is_published", "is_verified", "avg_rating", "rating_count",
		"created_at", "updated_at",
	}).AddRow(
		p.ID, p.OwnerID, p.Title, p.Description, p.PropertyType, p.Capacity, p.Bedrooms, p.Bathrooms,
		p.CityID, p.NeighborhoodID, p.Address, p.Latitude, p.Longitude,
		p.PricePerNight, p.PricePerWeek, p.PricePerMonth, p.CleaningFee, p.SecurityDeposit,
		p.AllowDiscount, p.CancellationPolicy, p.IsPublished, p.IsVerified, p.AvgRating, p.RatingCount,
		p.CreatedAt, p.UpdatedAt,
	)
}

func testProperty() *models.Property {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Property{
		ID:                 "prop-1",
		OwnerID:            "owner-1",
		Title:              "Studio meublé Bastos",
		PropertyType:       models.PropertyTypeStudio,
		Capacity:           2,
		CityID:             1,
		PricePerNight:      15000,
		PricePerWeek:       90000,
		PricePerMonth:      300000,
		CleaningFee:        5000,
		SecurityDeposit:    20000,
		CancellationPolicy: models.PolicyModerate,
		IsPublished:        true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestGet(t *testing.T) {
	t.Run("cache miss loads from db and caches", func(t *testing.T) {
		svc, dbMock, redisMock := newTestService(t, nil)
		p := testProperty()

		redisMock.ExpectGet("property:prop-1").RedisNil()
		dbMock.ExpectQuery(`SELECT .+ FROM findam_properties WHERE id`).
			WithArgs("prop-1").
			WillReturnRows(propertyRows(p))
		data, _ := json.Marshal(p)
		redisMock.ExpectSet("property:prop-1", data, propertyCacheTTL).SetVal("OK")

		got, err := svc.Get(context.Background(), "prop-1")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.NoError(t, redisMock.ExpectationsWereMet())
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("cache hit skips db", func(t *testing.T) {
		svc, dbMock, redisMock := newTestService(t, nil)
		p := testProperty()

		data, _ := json.Marshal(p)
		redisMock.ExpectGet("property:prop-1").SetVal(string(data))

		got, err := svc.Get(context.Background(), "prop-1")
		require.NoError(t, err)
		assert.Equal(t, p.Title, got.Title)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("missing property", func(t *testing.T) {
		svc, dbMock, redisMock := newTestService(t, nil)

		redisMock.ExpectGet("property:missing").RedisNil()
		dbMock.ExpectQuery(`SELECT .+ FROM findam_properties WHERE id`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := svc.Get(context.Background(), "missing")
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodePropertyNotFound, se.Code)
	})
}

func TestCreate(t *testing.T) {
	idx := &fakeIndex{}
	svc, dbMock, _ := newTestService(t, idx)

	dbMock.ExpectExec(`INSERT INTO findam_properties`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := svc.Create(context.Background(), "owner-1", PropertyInput{
		Title:         "Villa Bonapriso",
		PropertyType:  models.PropertyTypeVilla,
		Capacity:      6,
		CityID:        2,
		PricePerNight: 45000,
		IsPublished:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "owner-1", p.OwnerID)
	assert.Equal(t, models.PolicyModerate, p.CancellationPolicy, "default policy applies")
	require.Len(t, idx.indexed, 1)
	assert.Equal(t, p.ID, idx.indexed[0].ID)
}

func TestUpdateOwnership(t *testing.T) {
	svc, dbMock, _ := newTestService(t, nil)
	p := testProperty()

	dbMock.ExpectQuery(`SELECT .+ FROM findam_properties WHERE id`).
		WillReturnRows(propertyRows(p))

	_, err := svc.Update(context.Background(), "prop-1", "someone-else", PropertyInput{
		Title: "X", PropertyType: models.PropertyTypeStudio, Capacity: 1, CityID: 1, PricePerNight: 1,
	})
	se := apperrors.AsStandard(err)
	require.NotNil(t, se)
	assert.Equal(t, apperrors.ErrCodePropertyNotOwned, se.Code)
}

func TestSearchFallback(t *testing.T) {
	t.Run("index results keep ranking order", func(t *testing.T) {
		idx := &fakeIndex{ids: []string{"prop-2", "prop-1"}}
		svc, dbMock, _ := newTestService(t, idx)

		p1 := testProperty()
		p2 := testProperty()
		p2.ID = "prop-2"
		rows := propertyRows(p1)
		rows.AddRow(
			p2.ID, p2.OwnerID, p2.Title, p2.Description, p2.PropertyType, p2.Capacity, p2.Bedrooms, p2.Bathrooms,
			p2.CityID, p2.NeighborhoodID, p2.Address, p2.Latitude, p2.Longitude,
			p2.PricePerNight, p2.PricePerWeek, p2.PricePerMonth, p2.CleaningFee, p2.SecurityDeposit,
			p2.AllowDiscount, p2.CancellationPolicy, p2.IsPublished, p2.IsVerified, p2.AvgRating, p2.RatingCount,
			p2.CreatedAt, p2.UpdatedAt)
		dbMock.ExpectQuery(`SELECT .+ FROM findam_properties WHERE id = ANY`).
			WillReturnRows(rows)

		out, err := svc.Search(context.Background(), search.Query{Text: "studio"})
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "prop-2", out[0].ID)
		assert.Equal(t, "prop-1", out[1].ID)
	})

	t.Run("falls back to sql when index errors", func(t *testing.T) {
		idx := &fakeIndex{searchErr: errors.New("es down")}
		svc, dbMock, _ := newTestService(t, idx)

		dbMock.ExpectQuery(`SELECT .+ FROM findam_properties WHERE is_published = TRUE`).
			WillReturnRows(propertyRows(testProperty()))

		out, err := svc.Search(context.Background(), search.Query{CityID: 1})
		require.NoError(t, err)
		assert.Len(t, out, 1)
	})
}

func TestCreateBlock(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)

	t.Run("rejects overlap", func(t *testing.T) {
		svc, dbMock, _ := newTestService(t, nil)

		dbMock.ExpectQuery(`SELECT .+ FROM findam_properties WHERE id`).
			WillReturnRows(propertyRows(testProperty()))
		dbMock.ExpectQuery(`SELECT EXISTS`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := svc.CreateBlock(context.Background(), "prop-1", "owner-1", BlockInput{
			StartDate: start, EndDate: end, BlockType: models.BlockTypeBlocked,
		})
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodeDatesUnavailable, se.Code)
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		svc, dbMock, _ := newTestService(t, nil)

		dbMock.ExpectQuery(`SELECT .+ FROM findam_properties WHERE id`).
			WillReturnRows(propertyRows(testProperty()))

		_, err := svc.CreateBlock(context.Background(), "prop-1", "owner-1", BlockInput{
			StartDate: end, EndDate: start, BlockType: models.BlockTypeBlocked,
		})
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodeInvalidDateRange, se.Code)
	})

	t.Run("creates external booking block", func(t *testing.T) {
		svc, dbMock, _ := newTestService(t, nil)

		dbMock.ExpectQuery(`SELECT .+ FROM findam_properties WHERE id`).
			WillReturnRows(propertyRows(testProperty()))
		dbMock.ExpectQuery(`SELECT EXISTS`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		dbMock.ExpectQuery(`INSERT INTO findam_availabilities`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

		block, err := svc.CreateBlock(context.Background(), "prop-1", "owner-1", BlockInput{
			StartDate:  start,
			EndDate:    end,
			BlockType:  models.BlockTypeExternal,
			ClientName: "Jean Mballa",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(7), block.ID)
		assert.Equal(t, models.BlockTypeExternal, block.BlockType)
	})
}

func TestAddImage(t *testing.T) {
	t.Run("owner adds image", func(t *testing.T) {
		svc, dbMock, _ := newTestService(t, nil)

		dbMock.ExpectQuery(`SELECT .+ FROM findam_properties WHERE id`).
			WillReturnRows(propertyRows(testProperty()))
		dbMock.ExpectQuery(`INSERT INTO findam_property_images`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

		img, err := svc.AddImage(context.Background(), "prop-1", "owner-1", ImageInput{
			URL:    "https://cdn.findam.cm/prop-1/salon.jpg",
			IsMain: true,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), img.ID)
		assert.Equal(t, "prop-1", img.PropertyID)
	})

	t.Run("rejects non-owner", func(t *testing.T) {
		svc, dbMock, _ := newTestService(t, nil)

		dbMock.ExpectQuery(`SELECT .+ FROM findam_properties WHERE id`).
			WillReturnRows(propertyRows(testProperty()))

		_, err := svc.AddImage(context.Background(), "prop-1", "someone-else", ImageInput{
			URL: "https://cdn.findam.cm/x.jpg",
		})
		se := apperrors.AsStandard(err)
		require.NotNil(t, se)
		assert.Equal(t, apperrors.ErrCodePropertyNotOwned, se.Code)
	})
}

func TestImages(t *testing.T) {
	svc, dbMock, redisMock := newTestService(t, nil)
	p := testProperty()

	data, _ := json.Marshal(p)
	redisMock.ExpectGet("property:prop-1").SetVal(string(data))
	dbMock.ExpectQuery(`SELECT .+ FROM findam_property_images WHERE property_id`).
		WithArgs("prop-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "property_id", "url", "is_main", "image_order", "caption", "created_at"}).
			AddRow(int64(1), "prop-1", "https://cdn.findam.cm/prop-1/salon.jpg", true, 0, "Salon", p.CreatedAt).
			AddRow(int64(2), "prop-1", "https://cdn.findam.cm/prop-1/chambre.jpg", false, 1, nil, p.CreatedAt))

	imgs, err := svc.Images(context.Background(), "prop-1")
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.True(t, imgs[0].IsMain)
	assert.Empty(t, imgs[1].Caption)
}

func TestSetAmenities(t *testing.T) {
	svc, dbMock, _ := newTestService(t, nil)

	dbMock.ExpectQuery(`SELECT .+ FROM findam_properties WHERE id`).
		WillReturnRows(propertyRows(testProperty()))
	dbMock.ExpectBegin()
	dbMock.ExpectExec(`DELETE FROM findam_property_amenities`).
		WithArgs("prop-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectExec(`INSERT INTO findam_property_amenities`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	dbMock.ExpectCommit()
	dbMock.ExpectQuery(`SELECT .+ FROM findam_amenities a`).
		WithArgs("prop-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "icon", "category"}).
			AddRow(int64(1), "Wifi", "wifi", "essentials").
			AddRow(int64(2), "Climatisation", "snowflake", "comfort"))

	out, err := svc.SetAmenities(context.Background(), "prop-1", "owner-1", []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Wifi", out[0].Name)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestPriceForNights(t *testing.T) {
	p := testProperty() // 15k night, 90k week, 300k month

	tests := []struct {
		name   string
		nights int
		want   int64
	}{
		{"single night", 1, 15000},
		{"six nights at nightly rate", 6, 90000},
		{"one week uses weekly rate", 7, 90000},
		{"ten nights mixes week and nights", 10, 90000 + 3*15000},
		{"one month uses monthly rate", 30, 300000},
		{"40 nights bills the remainder nightly", 40, 300000 + 10*15000},
		{"zero nights", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.PriceForNights(tt.nights))
		})
	}

	t.Run("weekly rate never applies past a month", func(t *testing.T) {
		long := &models.Property{
			PricePerNight: 10000,
			PricePerWeek:  70000,
			PricePerMonth: 250000,
		}
		// 1 month + 10 nights, not 1 month + 1 week + 3 nights.
		assert.Equal(t, int64(250000+10*10000), long.PriceForNights(40))
	})
}
