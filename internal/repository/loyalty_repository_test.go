package repository_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
)

func TestLoyaltyAccrue(t *testing.T) {
	loyaltyCols := []string{"points", "total_points_earned", "level"}

	testCases := []struct {
		name          string
		amountCents   int64
		points        int64
		lifetime      int64
		level         uint8
		expectedEarn  int64
		expectedLevel uint8
	}{
		{
			// level 1 earns at half rate and the odd cent floors away
			name:        "level 1 accrues at half rate with floor",
			amountCents: 333, points: 0, lifetime: 0, level: 1,
			expectedEarn: 166, expectedLevel: 1,
		},
		{
			name:        "level 2 accrues one point per cent",
			amountCents: 500, points: 1200, lifetime: 1200, level: 2,
			expectedEarn: 500, expectedLevel: 2,
		},
		{
			name:        "level 3 accrues at one and a half",
			amountCents: 1000, points: 6000, lifetime: 6000, level: 3,
			expectedEarn: 1500, expectedLevel: 3,
		},
		{
			// the accrual that crosses the threshold is still paid at the
			// old rate; the new level applies from the next accrual on
			name:        "crossing a threshold promotes after paying the old rate",
			amountCents: 4000, points: 900, lifetime: 900, level: 1,
			expectedEarn: 2000, expectedLevel: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			assert.NoError(t, err)
			defer db.Close()

			mock.ExpectBegin()
			mock.ExpectQuery("FROM loyalty_accounts").
				WithArgs(uint64(7)).
				WillReturnRows(sqlmock.NewRows(loyaltyCols).
					AddRow(tc.points, tc.lifetime, tc.level))
			mock.ExpectExec("UPDATE loyalty_accounts").
				WithArgs(tc.expectedEarn, tc.lifetime+tc.expectedEarn, tc.expectedLevel, uint64(7)).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()

			repo := repository.NewLoyaltyRepo(db)
			earned, level, err := repo.Accrue(context.Background(), 7, tc.amountCents)
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedEarn, earned)
			assert.Equal(t, tc.expectedLevel, level)
		})
	}

	t.Run("missing account fails the accrual", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("FROM loyalty_accounts").
			WithArgs(uint64(7)).
			WillReturnRows(sqlmock.NewRows(loyaltyCols))
		mock.ExpectRollback()

		repo := repository.NewLoyaltyRepo(db)
		_, _, err = repo.Accrue(context.Background(), 7, 100)
		assert.ErrorIs(t, err, repository.ErrLoyaltyNotFound)
	})
}

func TestLoyaltyRedeemTx(t *testing.T) {
	t.Run("redeem costs one point per cent", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE loyalty_accounts").
			WithArgs(int64(2500), uint64(7), int64(2500)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := repository.NewLoyaltyRepo(db)
		tx, err := db.Begin()
		assert.NoError(t, err)

		spent, err := repo.RedeemTx(context.Background(), tx, 7, 2500)
		assert.NoError(t, err)
		assert.Equal(t, int64(2500), spent)
	})

	t.Run("short point balance aborts the redemption", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE loyalty_accounts").
			WithArgs(int64(2500), uint64(7), int64(2500)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT 1 FROM loyalty_accounts").
			WithArgs(uint64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		repo := repository.NewLoyaltyRepo(db)
		tx, err := db.Begin()
		assert.NoError(t, err)

		_, err = repo.RedeemTx(context.Background(), tx, 7, 2500)
		assert.ErrorIs(t, err, repository.ErrInsufficientPoints)
	})
}
