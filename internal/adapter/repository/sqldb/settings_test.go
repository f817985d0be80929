package sqldb

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
)

const testDeviceID = "V1StGXR8_Z5jdHi6B-myT"

type SettingsRepositoryTestSuite struct {
	suite.Suite
	errUnknown error
	columns    []string
	mock       sqlmock.Sqlmock
	repo       *SettingsRepository
}

func (suite *SettingsRepositoryTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.columns = []string{"name", "value"}
}

func (suite *SettingsRepositoryTestSuite) SetupSubTest() {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		suite.T().Fatalf("Failed to create mock database: %v", err)
	}
	suite.T().Cleanup(func() {
		mockDB.Close()
	})

	db := sqlx.NewDb(mockDB, "sqlmock")

	suite.mock = mock
	suite.repo = NewSettingsRepository(db)
}

func (suite *SettingsRepositoryTestSuite) TearDownSubTest() {
	suite.NoError(suite.mock.ExpectationsWereMet())
}

func (suite *SettingsRepositoryTestSuite) TestLoad() {
	suite.Run("unknown error", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM settings`).
			WithArgs(testDeviceID).
			WillReturnError(suite.errUnknown)

		settings, err := suite.repo.Load(context.Background(), testDeviceID)

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(settings)
	})

	suite.Run("no rows", func() {
		suite.mock.ExpectQuery(`SELECT (.+) FROM settings`).
			WithArgs(testDeviceID).
			WillReturnRows(sqlmock.NewRows(suite.columns))

		settings, err := suite.repo.Load(context.Background(), testDeviceID)

		suite.NoError(err)
		suite.Empty(settings)
	})

	suite.Run("success", func() {
		rows := sqlmock.NewRows(suite.columns).
			AddRow("options.apiKey", `"sk_live"`).
			AddRow("options.devMode", `true`)

		suite.mock.ExpectQuery(`SELECT (.+) FROM settings`).
			WithArgs(testDeviceID).
			WillReturnRows(rows)

		settings, err := suite.repo.Load(context.Background(), testDeviceID)

		suite.NoError(err)
		suite.Equal(map[string]string{
			"options.apiKey":  `"sk_live"`,
			"options.devMode": `true`,
		}, settings)
	})
}

func (suite *SettingsRepositoryTestSuite) TestSave() {
	suite.Run("unknown error", func() {
		suite.mock.ExpectExec(`INSERT INTO settings`).
			WithArgs(testDeviceID, "options.apiKey", `"sk_live"`).
			WillReturnError(suite.errUnknown)

		err := suite.repo.Save(context.Background(), testDeviceID, "options.apiKey", `"sk_live"`)

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
	})

	suite.Run("success", func() {
		suite.mock.ExpectExec(`INSERT INTO settings(.+)ON CONFLICT`).
			WithArgs(testDeviceID, "options.apiKey", `"sk_live"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := suite.repo.Save(context.Background(), testDeviceID, "options.apiKey", `"sk_live"`)

		suite.NoError(err)
	})
}

func (suite *SettingsRepositoryTestSuite) TestDelete() {
	suite.Run("unknown error", func() {
		suite.mock.ExpectExec(`DELETE FROM settings`).
			WithArgs(testDeviceID, "options.apiKey").
			WillReturnError(suite.errUnknown)

		err := suite.repo.Delete(context.Background(), testDeviceID, "options.apiKey")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
	})

	suite.Run("missing setting", func() {
		suite.mock.ExpectExec(`DELETE FROM settings`).
			WithArgs(testDeviceID, "options.apiKey").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := suite.repo.Delete(context.Background(), testDeviceID, "options.apiKey")

		suite.NoError(err)
	})
}

func TestSettingsRepository(t *testing.T) {
	suite.Run(t, new(SettingsRepositoryTestSuite))
}
