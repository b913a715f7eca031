package repository_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/repository"
)

func TestDecrementStockTx(t *testing.T) {
	testCases := []struct {
		name          string
		quantity      int64
		setup         func(mock sqlmock.Sqlmock)
		expectedError error
	}{
		{
			name:     "stock covers the quantity",
			quantity: 2,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE products SET stock").
					WithArgs(int64(2), uint64(5), int64(2)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:     "short stock aborts the settlement",
			quantity: 10,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE products SET stock").
					WithArgs(int64(10), uint64(5), int64(10)).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT 1 FROM products").
					WithArgs(uint64(5)).
					WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
			},
			expectedError: repository.ErrInsufficientStock,
		},
		{
			name:     "missing or retired product is not found",
			quantity: 1,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE products SET stock").
					WithArgs(int64(1), uint64(5), int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT 1 FROM products").
					WithArgs(uint64(5)).
					WillReturnRows(sqlmock.NewRows([]string{"1"}))
			},
			expectedError: repository.ErrProductNotFound,
		},
		{
			name:     "zero quantity is rejected up front",
			quantity: 0,
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

			repo := repository.NewProductRepo(db)
			tx, err := db.Begin()
			assert.NoError(t, err)

			err = repo.DecrementStockTx(context.Background(), tx, 5, tc.quantity)
			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
