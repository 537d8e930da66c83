package database

import (
	"context"
	"database/sql"
	"time"
	"trippey_quests/internal/platform/config"
	"trippey_quests/internal/platform/logging"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

var DB *sql.DB

func Connect() {
	var err error
	DB, err = sql.Open("pgx", config.AppConfig.DBConnStr)
	if err != nil {
		logging.Log.Fatalf("Error opening database: %v", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = DB.PingContext(ctx); err != nil {
		logging.Log.Fatalf("Error connecting to database: %v", err)
	}

	logging.Log.Info("Connected to PostgreSQL")
}

func Close() {
	if DB != nil {
		DB.Close()
		logging.Log.Info("Database connection closed")
	}
}
