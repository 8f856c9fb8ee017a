package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/grocery-store/config"
	"github.com/yeremiapane/grocery-store/database"
	"github.com/yeremiapane/grocery-store/hub"
	"github.com/yeremiapane/grocery-store/models"
	"github.com/yeremiapane/grocery-store/router"
	"github.com/yeremiapane/grocery-store/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.ConfigureJWT("controllers-test-secret", time.Hour, "test")
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"*"}},
		Bank: config.BankConfig{
			QRBaseURL:     "https://img.vietqr.io/image",
			QRTemplate:    "compact2",
			BankID:        "970422",
			BankName:      "MB Bank",
			AccountNumber: "0796791500",
			AccountName:   "TRAN NGOC PHUC HUY",
		},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000, AuthPerMinute: 1000},
	}
}

type testApp struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	return &testApp{t: t, db: db, router: router.SetupRouter(db, testConfig(), hub.New())}
}

// seedUser inserts a user directly and returns a bearer token for it.
func (a *testApp) seedUser(username, role string) (uint, string) {
	a.t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(a.t, err)
	user := models.User{Username: username, Email: username + "@example.com", Password: string(hashed), Role: role}
	require.NoError(a.t, a.db.Create(&user).Error)
	token, err := utils.GenerateToken(user.ID, user.Role)
	require.NoError(a.t, err)
	return user.ID, token
}

func (a *testApp) seedProduct(name, price string, stock int) models.Product {
	a.t.Helper()
	p := models.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock, IsAvailable: true}
	require.NoError(a.t, a.db.Create(&p).Error)
	return p
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *testApp) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v), string(raw))
}

type orderView struct {
	ID         uint   `json:"id"`
	UserID     uint   `json:"user_id"`
	TotalPrice string `json:"total_price"`
	Paid       bool   `json:"paid"`
	Status     string `json:"status"`
	Items      []struct {
		Product     uint   `json:"product"`
		ProductName string `json:"product_name"`
		Quantity    int    `json:"quantity"`
		Price       string `json:"price"`
		TotalPrice  string `json:"total_price"`
	} `json:"items"`
}

type paymentView struct {
	ID            uint    `json:"id"`
	OrderID       uint    `json:"order_id"`
	Amount        string  `json:"amount"`
	Method        string  `json:"method"`
	Status        string  `json:"status"`
	TransactionID *string `json:"transaction_id"`
	QRCodeURL     *string `json:"qr_code_url"`
	PaidAt        *string `json:"paid_at"`
	Logs          []struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"logs"`
}

func assertMoney(t *testing.T, want, got string) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(decimal.RequireFromString(got)), "want %s, got %s", want, got)
}
