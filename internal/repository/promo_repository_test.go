package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/model"
	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
)

func TestDiscount(t *testing.T) {
	testCases := []struct {
		name       string
		percentage uint8
		subtotal   int64
		expected   int64
	}{
		{name: "ten percent of a round subtotal", percentage: 10, subtotal: 10000, expected: 1000},
		{name: "odd subtotal floors the discount", percentage: 33, subtotal: 101, expected: 33},
		{name: "one cent at one percent floors to zero", percentage: 1, subtotal: 99, expected: 0},
		{name: "full discount covers the subtotal", percentage: 100, subtotal: 4242, expected: 4242},
		{name: "zero subtotal discounts nothing", percentage: 50, subtotal: 0, expected: 0},
		{name: "negative subtotal discounts nothing", percentage: 50, subtotal: -5, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := &model.PromoCode{Percentage: tc.percentage}
			assert.Equal(t, tc.expected, repository.Discount(p, tc.subtotal))
		})
	}
}

func TestPromoGetActive(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	promoCols := []string{"id", "name", "percentage", "is_active", "expires_at", "created_at"}

	t.Run("active unexpired code is returned with the name upper-cased", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("FROM promo_codes").
			WithArgs("SUMMER25").
			WillReturnRows(sqlmock.NewRows(promoCols).
				AddRow(uint64(1), "SUMMER25", uint8(25), true, now.Add(24*time.Hour), now.Add(-time.Hour)))

		repo := repository.NewPromoRepo(db)
		p, err := repo.GetActive(context.Background(), "  summer25 ", now)
		assert.NoError(t, err)
		assert.Equal(t, "SUMMER25", p.Name)
		assert.Equal(t, uint8(25), p.Percentage)
	})

	t.Run("expired code is distinguishable from a typo", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("FROM promo_codes").
			WithArgs("OLDCODE").
			WillReturnRows(sqlmock.NewRows(promoCols).
				AddRow(uint64(2), "OLDCODE", uint8(10), true, now.Add(-time.Minute), now.Add(-48*time.Hour)))

		repo := repository.NewPromoRepo(db)
		_, err = repo.GetActive(context.Background(), "OLDCODE", now)
		assert.ErrorIs(t, err, repository.ErrPromoExpiredOrInactive)
	})

	t.Run("deactivated code is rejected even before expiry", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("FROM promo_codes").
			WithArgs("KILLED").
			WillReturnRows(sqlmock.NewRows(promoCols).
				AddRow(uint64(3), "KILLED", uint8(15), false, now.Add(24*time.Hour), now.Add(-time.Hour)))

		repo := repository.NewPromoRepo(db)
		_, err = repo.GetActive(context.Background(), "KILLED", now)
		assert.ErrorIs(t, err, repository.ErrPromoExpiredOrInactive)
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("FROM promo_codes").
			WithArgs("NOPE").
			WillReturnRows(sqlmock.NewRows(promoCols))

		repo := repository.NewPromoRepo(db)
		_, err = repo.GetActive(context.Background(), "nope", now)
		assert.ErrorIs(t, err, repository.ErrPromoNotFound)
	})

	t.Run("code expiring this instant still applies", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("FROM promo_codes").
			WithArgs("EDGE").
			WillReturnRows(sqlmock.NewRows(promoCols).
				AddRow(uint64(4), "EDGE", uint8(5), true, now, now.Add(-time.Hour)))

		repo := repository.NewPromoRepo(db)
		p, err := repo.GetActive(context.Background(), "EDGE", now)
		assert.NoError(t, err)
		assert.Equal(t, "EDGE", p.Name)
	})
}
