package repository

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/microfeed/internal/model"
	"github.com/d60-Lab/microfeed/internal/sharding"
)

func setupDB(t *testing.T) (*gorm.DB, *sharding.Router) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Post{}, &model.Follow{}, &model.Outbox{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db, sharding.NewRouter([]*gorm.DB{db})
}
