package repository_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
)

func TestWalletDebitTx(t *testing.T) {
	testCases := []struct {
		name          string
		amount        int64
		setup         func(mock sqlmock.Sqlmock)
		expectedError error
	}{
		{
			name:   "debit succeeds and writes an audit row",
			amount: 2500,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE wallets").
					WithArgs(int64(2500), uint64(7), int64(2500)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO wallet_transactions").
					WithArgs(uint64(7), int64(2500), "debit", "booking:activity:3").
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
		},
		{
			name:   "insufficient balance leaves the row untouched",
			amount: 2500,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE wallets").
					WithArgs(int64(2500), uint64(7), int64(2500)).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT 1 FROM wallets").
					WithArgs(uint64(7)).
					WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
			},
			expectedError: repository.ErrInsufficientFunds,
		},
		{
			name:   "missing wallet is distinguished from a short balance",
			amount: 2500,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE wallets").
					WithArgs(int64(2500), uint64(7), int64(2500)).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT 1 FROM wallets").
					WithArgs(uint64(7)).
					WillReturnRows(sqlmock.NewRows([]string{"1"}))
			},
			expectedError: repository.ErrTouristNotFound,
		},
		{
			name:   "non-positive amount is rejected before touching the database",
			amount: 0,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
			},
			expectedError: repository.ErrInvalidAmount,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			assert.NoError(t, err)
			defer db.Close()

			tc.setup(mock)

			repo := repository.NewWalletRepo(db)
			tx, err := db.Begin()
			assert.NoError(t, err)

			err = repo.DebitTx(context.Background(), tx, 7, tc.amount, "booking:activity:3")
			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWalletCreditTx(t *testing.T) {
	t.Run("credit succeeds for an existing wallet", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE wallets").
			WithArgs(int64(900), uint64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO wallet_transactions").
			WithArgs(uint64(4), int64(900), "credit", "refund:booking:12").
			WillReturnResult(sqlmock.NewResult(1, 1))

		repo := repository.NewWalletRepo(db)
		tx, err := db.Begin()
		assert.NoError(t, err)

		err = repo.CreditTx(context.Background(), tx, 4, 900, "refund:booking:12")
		assert.NoError(t, err)
	})

	t.Run("credit to a missing wallet fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE wallets").
			WithArgs(int64(900), uint64(4)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := repository.NewWalletRepo(db)
		tx, err := db.Begin()
		assert.NoError(t, err)

		err = repo.CreditTx(context.Background(), tx, 4, 900, "refund:booking:12")
		assert.ErrorIs(t, err, repository.ErrTouristNotFound)
	})
}

func TestWalletBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT balance_cents FROM wallets").
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"balance_cents"}).AddRow(int64(12345)))

	repo := repository.NewWalletRepo(db)
	cents, err := repo.Balance(context.Background(), 9)
	assert.NoError(t, err)
	assert.Equal(t, int64(12345), cents)
}
