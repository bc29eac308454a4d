package controller

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"newsreel_backend/internal/testutil"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func mockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	return db, mock
}

func serveHealth(h *HealthController) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/health", h.HealthCheck)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	return w
}

func TestHealthCheck(t *testing.T) {
	db, mock := mockDB(t)
	rdb, _ := testutil.NewRedis(t)
	mock.ExpectPing()

	w := serveHealth(NewHealthController(db, rdb))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ping not issued: %v", err)
	}
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	db, mock := mockDB(t)
	rdb, _ := testutil.NewRedis(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	if w := serveHealth(NewHealthController(db, rdb)); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestHealthCheckRedisDown(t *testing.T) {
	db, mock := mockDB(t)
	rdb, mr := testutil.NewRedis(t)
	mock.ExpectPing()
	mr.Close()

	w := serveHealth(NewHealthController(db, rdb))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
