// Package testutil 测试用的数据库与 Redis 夹具
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"newsreel_backend/internal/model"
	"newsreel_backend/pkg/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB 临时目录下的 SQLite 文件库，已执行迁移
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "newsreel_test.db")
	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// NewRedis miniredis 客户端
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

const Password = "password123"

var hashed []byte

// CreateUser 以用户名生成唯一邮箱和手机号
func CreateUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	if hashed == nil {
		h, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		hashed = h
	}
	var n int64
	db.Model(&model.User{}).Count(&n)
	u := &model.User{
		Username:    username,
		Email:       username + "@example.com",
		PhoneNumber: fmt.Sprintf("+1202555%04d", n+1),
		Password:    string(hashed),
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// Reload 重新读取用户计数
func Reload(t *testing.T, db *gorm.DB, id uint) *model.User {
	t.Helper()
	var u model.User
	if err := db.First(&u, id).Error; err != nil {
		t.Fatalf("reload user %d: %v", id, err)
	}
	return &u
}
