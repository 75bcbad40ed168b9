package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pickt972/stock-wise-fleet-sub001/internal/shared/mail"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/repository"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/testutil"
	"gorm.io/gorm"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (s *fakeStore) Put(_ context.Context, key, _ string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[key] = data
	return nil
}

// recordingPublisher keeps published event types
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(eventType string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == eventType {
			n++
		}
	}
	return n
}

func setupServices(t *testing.T, deps Deps) (*gorm.DB, *Services) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	if deps.Reorder.VATRate.IsZero() {
		deps.Reorder = DefaultReorderSettings()
	}
	return db, NewServices(repository.NewRepositories(db), deps)
}

func reloadArticle(t *testing.T, db *gorm.DB, id string) *entity.Article {
	t.Helper()
	var a entity.Article
	if err := db.Where("id = ?", id).First(&a).Error; err != nil {
		t.Fatalf("Failed to reload article: %v", err)
	}
	return &a
}

func countMovements(t *testing.T, db *gorm.DB, articleID string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&entity.StockMovement{}).Where("article_id = ?", articleID).Count(&n).Error; err != nil {
		t.Fatalf("Failed to count movements: %v", err)
	}
	return n
}

func assertLedgerConsistent(t *testing.T, svc *Services, articleID string) {
	t.Helper()
	check, err := svc.Ledger.Verify(context.Background(), articleID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !check.Consistent {
		t.Fatalf("ledger drift: stock %d, movements %d", check.Stock, check.MovementSum)
	}
}

func mustErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}
