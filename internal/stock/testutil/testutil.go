package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/middleware"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	JWTSecret = "stock-wise-test-secret"
	JWTIssuer = "stock-wise"
)

// TestEnv holds test dependencies
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// SetupTestDB opens an isolated in-memory SQLite database named after the test
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// one connection: the in-memory database lives as long as it does
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := entity.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret, JWTIssuer))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, name, email string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"name":  name,
		"email": email,
		"roles": roles,
		"iss":   JWTIssuer,
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for a default test user
func DefaultTestToken() string {
	return GenerateTestToken("test-user-001", "Test Magasinier", "magasin@test.fr", []string{"stock_manager"})
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedArticle inserts an article with the given stock and minimum. The stock
// is backed by an initial movement so the ledger stays consistent.
func SeedArticle(t *testing.T, db *gorm.DB, ref string, stock, stockMin int, price string) *entity.Article {
	t.Helper()
	now := time.Now()
	a := &entity.Article{
		ID:            uuid.New().String(),
		Reference:     ref,
		Designation:   "Article " + ref,
		Stock:         stock,
		StockMin:      stockMin,
		PurchasePrice: decimal.RequireFromString(price),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("Failed to seed article: %v", err)
	}
	if stock > 0 {
		m := &entity.StockMovement{
			ID:          uuid.New().String(),
			ArticleID:   a.ID,
			Direction:   entity.DirectionIn,
			Quantity:    stock,
			Reason:      entity.ReasonInitialStock,
			StockBefore: 0,
			StockAfter:  stock,
			CreatedAt:   now,
		}
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("Failed to seed movement: %v", err)
		}
	}
	return a
}

// SeedSupplier inserts an active supplier
func SeedSupplier(t *testing.T, db *gorm.DB, name, email string) *entity.Supplier {
	t.Helper()
	now := time.Now()
	s := &entity.Supplier{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("Failed to seed supplier: %v", err)
	}
	return s
}

// SeedLink inserts an active article-supplier link. price may be empty to
// fall back to the article purchase price. created orders links explicitly.
func SeedLink(t *testing.T, db *gorm.DB, articleID, supplierID string, principal bool, price string, created time.Time) *entity.ArticleSupplier {
	t.Helper()
	l := &entity.ArticleSupplier{
		ID:          uuid.New().String(),
		ArticleID:   articleID,
		SupplierID:  supplierID,
		IsPrincipal: principal,
		Active:      true,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	if price != "" {
		p := decimal.RequireFromString(price)
		l.Price = &p
	}
	if err := db.Create(l).Error; err != nil {
		t.Fatalf("Failed to seed link: %v", err)
	}
	return l
}

// ErrInjected is returned by inserts failed through FailNthCreate
var ErrInjected = errors.New("injected insert failure")

// FailNthCreate makes the nth insert into table fail with ErrInjected.
// Inserts made before the call are not counted.
func FailNthCreate(t *testing.T, db *gorm.DB, table string, n int) {
	t.Helper()
	var (
		mu    sync.Mutex
		count int
	)
	name := fmt.Sprintf("testutil:fail_%s_%d", table, time.Now().UnixNano())
	err := db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		count++
		if count == n {
			tx.AddError(ErrInjected)
		}
	})
	if err != nil {
		t.Fatalf("Failed to register create callback: %v", err)
	}
}
