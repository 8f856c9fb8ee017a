package services

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/grocery-store/config"
	"github.com/yeremiapane/grocery-store/database"
	"github.com/yeremiapane/grocery-store/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testBank = config.BankConfig{
	QRBaseURL:     "https://img.vietqr.io/image",
	QRTemplate:    "compact2",
	BankID:        "970422",
	BankName:      "MB Bank",
	AccountNumber: "0796791500",
	AccountName:   "TRAN NGOC PHUC HUY",
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username, role string) Actor {
	t.Helper()
	user := models.User{Username: username, Email: username + "@example.com", Password: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return Actor{UserID: user.ID, Role: role}
}

func createProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()
	product := models.Product{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		IsAvailable: true,
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

func stockOf(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, id).Error)
	return p.Stock
}

type fixture struct {
	db       *gorm.DB
	orders   *OrderService
	payments *PaymentService
	events   *recordingNotifier
	customer Actor
	other    Actor
	staff    Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)
	events := &recordingNotifier{}
	return &fixture{
		db:       db,
		orders:   NewOrderService(db, config.OrderConfig{}, events),
		payments: NewPaymentService(db, testBank, events),
		events:   events,
		customer: createUser(t, db, "alice", models.RoleCustomer),
		other:    createUser(t, db, "bob", models.RoleCustomer),
		staff:    createUser(t, db, "clerk", models.RoleStaff),
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Publish(event string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func fieldKey(i int, name string) string {
	return fmt.Sprintf("items[%d].%s", i, name)
}
