package models

import (
	"log"

	"bitbucket.org/mmdatafocus/cashflow_analytics/config"
)

func Migrate() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&Receivable{},
		&Payable{},
		&WorkingCapitalSnapshot{},
		&ForecastEntry{},
		&SeasonalPattern{},
	)
	if err != nil {
		log.Fatalf("auto migration failed: %v", err)
	}
}
