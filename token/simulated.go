package token

import (
	"database/sql"

	"github.com/TEENet-io/htlc-go/database"
	logger "github.com/sirupsen/logrus"
)

func getMemoryDB() *sql.DB {
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		logger.Fatal(err)
	}
	return db
}
