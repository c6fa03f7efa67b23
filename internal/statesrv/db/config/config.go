package config

import (
	"fmt"

	"github.com/tansive/stately/internal/statesrv/config"
)

// StatelyDsn builds the Postgres connection string from the loaded service
// configuration.
func StatelyDsn() string {
	db := config.Config().Db
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.User, db.Password, db.DbName, db.SSLMode)
}

// CompressManifests reports whether manifest content is snappy-compressed at
// rest in the Postgres driver.
func CompressManifests() bool {
	return config.Config().CompressManifests
}
