package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

// The container healthcheck verifies the vault database is openable and
// responsive. It exits 0 on success and 1 on any failure.
func main() {
	os.Exit(check())
}

func check() int {
	dbPath := os.Getenv("SECUREVAULT_DB_PATH")
	if dbPath == "" {
		dbPath = "securevault.db"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro&_pragma=busy_timeout(2000)")
	if err != nil {
		return 1
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return 1
	}

	return 0
}
