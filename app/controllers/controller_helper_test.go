package controllers

import (
	"context"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/mikolohq/mikolo/app/models"
	"github.com/mikolohq/mikolo/internal/pkg/usercontext"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

// expectEventOwner queues the event lookup the ownership check performs.
func expectEventOwner(mock sqlmock.Sqlmock, eventID, ownerID uint) {
	rows := sqlmock.NewRows([]string{"id", "owner_account_id", "title"}).
		AddRow(eventID, ownerID, "Launch party")
	mock.ExpectQuery("SELECT \\* FROM `events`").WillReturnRows(rows)
}

// actorware injects an authenticated actor the way the auth middleware does.
func actorware(accountID uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
			AccountID:  accountID,
			Email:      "actor@mikolo.ug",
			IsLoggedIn: true,
		})
		return c.Next()
	}
}

// stubPaymentRepo is an in-memory payments.Repository for handler tests.
type stubPaymentRepo struct {
	mu   sync.Mutex
	seq  uint
	rows map[uint]*models.Payment
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{rows: map[uint]*models.Payment{}}
}

func (r *stubPaymentRepo) put(p *models.Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		r.seq++
		p.ID = r.seq
	} else if p.ID > r.seq {
		r.seq = p.ID
	}
	copied := *p
	r.rows[p.ID] = &copied
}

func (r *stubPaymentRepo) CreatePayment(_ context.Context, p *models.Payment) error {
	r.put(p)
	return nil
}

func (r *stubPaymentRepo) SavePayment(_ context.Context, p *models.Payment) error {
	r.put(p)
	return nil
}

func (r *stubPaymentRepo) GetPayment(_ context.Context, id uint) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *stubPaymentRepo) MarkTerminal(_ context.Context, id uint, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.rows[id]; ok && p.Status == models.MobilePaymentPending {
		p.Status = status
	}
	return nil
}

func (r *stubPaymentRepo) ListForEvent(_ context.Context, eventID uint) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.rows {
		if p.EventID == eventID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubPaymentRepo) PendingForEvent(_ context.Context, eventID uint) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.EventID == eventID && p.Status == models.MobilePaymentPending {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}
