package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/shared/lock"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/repository"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/sse"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Drift policies applied when live stock moved between count and validation
const (
	DriftReject = "reject"
	DriftDelta  = "delta"
)

const sessionLockTTL = 5 * time.Minute

// SessionArchiver stores a validated count report
type SessionArchiver interface {
	ArchiveSession(ctx context.Context, sessionID string) (string, error)
}

// ReconciliationService inventory count sessions
type ReconciliationService struct {
	repos       *repository.Repositories
	ledger      *LedgerService
	locker      lock.Locker
	events      sse.Publisher
	archiver    SessionArchiver
	driftPolicy string
	autoArchive bool
	logger      *zap.Logger
}

// ReconciliationOptions behaviour switches
type ReconciliationOptions struct {
	DriftPolicy string
	AutoArchive bool
	Archiver    SessionArchiver
}

func NewReconciliationService(repos *repository.Repositories, ledger *LedgerService, locker lock.Locker, events sse.Publisher, opts ReconciliationOptions, logger *zap.Logger) *ReconciliationService {
	policy := opts.DriftPolicy
	if policy == "" {
		policy = DriftReject
	}
	return &ReconciliationService{
		repos:       repos,
		ledger:      ledger,
		locker:      locker,
		events:      events,
		archiver:    opts.Archiver,
		driftPolicy: policy,
		autoArchive: opts.AutoArchive,
		logger:      logger,
	}
}

type CreateSessionRequest struct {
	CountDate  *time.Time `json:"count_date"`
	Category   string     `json:"category"`
	LocationID string     `json:"location_id"`
	Notes      string     `json:"notes"`
}

// CreateSession opens a count with one line per article in scope, each
// holding the current stock as theoretical quantity.
func (s *ReconciliationService) CreateSession(ctx context.Context, req CreateSessionRequest, actor string) (*entity.InventorySession, error) {
	now := time.Now()
	session := &entity.InventorySession{
		ID:        uuid.New().String(),
		CountDate: now,
		Status:    entity.SessionStatusInProgress,
		Category:  req.Category,
		Notes:     req.Notes,
		CreatedBy: actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.CountDate != nil {
		session.CountDate = *req.CountDate
	}
	if req.LocationID != "" {
		loc := req.LocationID
		session.LocationID = &loc
	}

	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		articles, err := r.Article.FindInScope(ctx, repository.ArticleFilter{
			Category:   req.Category,
			LocationID: req.LocationID,
		})
		if err != nil {
			return err
		}
		if len(articles) == 0 {
			return ErrEmptySession
		}
		for _, a := range articles {
			session.Lines = append(session.Lines, entity.InventoryLine{
				ID:          uuid.New().String(),
				SessionID:   session.ID,
				ArticleID:   a.ID,
				Reference:   a.Reference,
				Designation: a.Designation,
				Theoretical: a.Stock,
			})
		}
		return r.Inventory.Create(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Inventory session created",
		zap.String("session_id", session.ID),
		zap.Int("lines", len(session.Lines)),
		zap.String("actor", actor))
	return session, nil
}

func (s *ReconciliationService) Get(ctx context.Context, id string) (*entity.InventorySession, error) {
	session, err := s.repos.Inventory.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("session", id, err)
	}
	return session, nil
}

func (s *ReconciliationService) List(ctx context.Context, page, pageSize int, status string) ([]entity.InventorySession, int64, error) {
	return s.repos.Inventory.FindAll(ctx, page, pageSize, status)
}

// RecordCount stores a counted quantity. Live stock is untouched.
func (s *ReconciliationService) RecordCount(ctx context.Context, lineID string, counted int, actor string) (*entity.InventoryLine, error) {
	if counted < 0 {
		return nil, ErrInvalidQuantity
	}

	var line *entity.InventoryLine
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		var err error
		line, err = r.Inventory.FindLineByID(ctx, lineID)
		if err != nil {
			return lookupErr("ligne", lineID, err)
		}
		if err := s.lockInProgress(ctx, r, line.SessionID); err != nil {
			return err
		}
		return s.applyCount(ctx, r, line, counted, actor)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// CountEntry one queued count, addressed by line id or article reference
type CountEntry struct {
	LineID    string `json:"line_id"`
	Reference string `json:"reference"`
	Counted   int    `json:"counted"`
}

// RecordCounts replays a batch of counts; all or nothing
func (s *ReconciliationService) RecordCounts(ctx context.Context, sessionID string, entries []CountEntry, actor string) (int, string, error) {
	for _, e := range entries {
		if e.Counted < 0 {
			return 0, "", ErrInvalidQuantity
		}
		if e.LineID == "" && e.Reference == "" {
			return 0, "", fmt.Errorf("ligne ou référence requise: %w", ErrNotFound)
		}
	}

	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		session, err := r.Inventory.FindByID(ctx, sessionID)
		if err != nil {
			return lookupErr("session", sessionID, err)
		}
		if err := s.lockInProgress(ctx, r, session.ID); err != nil {
			return err
		}

		byID := make(map[string]*entity.InventoryLine, len(session.Lines))
		byRef := make(map[string]*entity.InventoryLine, len(session.Lines))
		for i := range session.Lines {
			byID[session.Lines[i].ID] = &session.Lines[i]
			byRef[strings.ToUpper(session.Lines[i].Reference)] = &session.Lines[i]
		}
		for _, e := range entries {
			line := byID[e.LineID]
			if line == nil {
				line = byRef[strings.ToUpper(e.Reference)]
			}
			if line == nil {
				return fmt.Errorf("%s%s: %w", e.LineID, e.Reference, ErrNotFound)
			}
			if err := s.applyCount(ctx, r, line, e.Counted, actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, "", err
	}
	return len(entries), summary(msgCountsRecorded, len(entries)), nil
}

func (s *ReconciliationService) applyCount(ctx context.Context, r *repository.Repositories, line *entity.InventoryLine, counted int, actor string) error {
	now := time.Now()
	variance := counted - line.Theoretical
	line.Counted = &counted
	line.Variance = &variance
	line.CountedBy = actor
	line.CountedAt = &now
	return r.Inventory.UpdateCount(ctx, line)
}

// lockInProgress fails unless the session is in progress; the row stays
// locked until the surrounding transaction ends.
func (s *ReconciliationService) lockInProgress(ctx context.Context, r *repository.Repositories, sessionID string) error {
	err := r.Inventory.Transition(ctx, sessionID, entity.SessionStatusInProgress, entity.SessionStatusInProgress, nil)
	if errors.Is(err, repository.ErrVersionConflict) {
		return ErrSessionNotInProgress
	}
	return err
}

// CloseResult closure outcome; discrepancies never block closure
type CloseResult struct {
	Session       *entity.InventorySession `json:"session"`
	Discrepancies int                      `json:"discrepancies"`
	Message       string                   `json:"message"`
}

// CloseSession ends counting once every line is counted
func (s *ReconciliationService) CloseSession(ctx context.Context, sessionID string) (*CloseResult, error) {
	var discrepancies int64
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		session, err := r.Inventory.FindByID(ctx, sessionID)
		if err != nil {
			return lookupErr("session", sessionID, err)
		}
		if session.Status != entity.SessionStatusInProgress {
			return ErrSessionNotInProgress
		}
		remaining, err := r.Inventory.CountUncounted(ctx, sessionID)
		if err != nil {
			return err
		}
		if remaining > 0 {
			return &NotAllCountedError{Remaining: int(remaining)}
		}
		if discrepancies, err = r.Inventory.CountVariances(ctx, sessionID); err != nil {
			return err
		}
		err = r.Inventory.Transition(ctx, sessionID, entity.SessionStatusInProgress, entity.SessionStatusClosed,
			map[string]interface{}{"closed_at": time.Now()})
		if errors.Is(err, repository.ErrVersionConflict) {
			return ErrSessionNotInProgress
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Inventory session closed", zap.String("session_id", sessionID), zap.Int64("discrepancies", discrepancies))
	s.events.Publish(sse.EventSessionClosed, map[string]interface{}{"session_id": sessionID, "discrepancies": discrepancies})
	return &CloseResult{
		Session:       session,
		Discrepancies: int(discrepancies),
		Message:       summary(msgDiscrepancies, int(discrepancies)),
	}, nil
}

// ValidateResult validation outcome
type ValidateResult struct {
	Session     *entity.InventorySession `json:"session"`
	Corrections []entity.StockMovement   `json:"corrections"`
	ArchiveKey  string                   `json:"archive_key,omitempty"`
	Message     string                   `json:"message"`
}

// ValidateSession applies every non-zero variance to live stock through the
// ledger, then marks the session validated. Nothing is applied on failure.
func (s *ReconciliationService) ValidateSession(ctx context.Context, sessionID, actor string) (*ValidateResult, error) {
	release, err := s.locker.Acquire(ctx, "inventory:session:"+sessionID, sessionLockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("verrou de session: %w", err)
	}
	defer release()

	var (
		corrections []entity.StockMovement
		touched     []*entity.Article
	)
	err = s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		session, err := r.Inventory.FindByID(ctx, sessionID)
		if err != nil {
			return lookupErr("session", sessionID, err)
		}
		if session.Status != entity.SessionStatusClosed {
			return ErrSessionNotClosed
		}

		var pending []entity.InventoryLine
		for _, l := range session.Lines {
			if l.HasVariance() {
				pending = append(pending, l)
			}
		}

		// any article of the session moving since the count voids it,
		// including lines counted without a variance
		if s.driftPolicy == DriftReject {
			ids := make([]string, 0, len(session.Lines))
			for _, l := range session.Lines {
				ids = append(ids, l.ArticleID)
			}
			articles, err := r.Article.FindByIDs(ctx, ids)
			if err != nil {
				return err
			}
			var drifted []string
			for _, l := range session.Lines {
				if a, ok := articles[l.ArticleID]; ok && a.Stock != l.Theoretical {
					drifted = append(drifted, l.Reference)
				}
			}
			if len(drifted) > 0 {
				return &StockDriftError{References: drifted}
			}
		}

		for _, l := range pending {
			variance := *l.Variance
			direction := entity.DirectionIn
			qty := variance
			if variance < 0 {
				direction = entity.DirectionOut
				qty = -variance
			}
			m, article, err := s.ledger.record(ctx, r, MovementRequest{
				ArticleID:     l.ArticleID,
				Direction:     direction,
				Quantity:      qty,
				Reason:        entity.ReasonInventoryCorrection,
				ReferenceType: entity.RefTypeInventorySession,
				ReferenceID:   session.ID,
			}, actor, movementOptions{allowNegative: true})
			if err != nil {
				return fmt.Errorf("%s: %w", l.Reference, err)
			}
			corrections = append(corrections, *m)
			touched = append(touched, article)
		}

		err = r.Inventory.Transition(ctx, sessionID, entity.SessionStatusClosed, entity.SessionStatusValidated,
			map[string]interface{}{"validated_at": time.Now(), "validated_by": actor})
		if errors.Is(err, repository.ErrVersionConflict) {
			return ErrSessionNotClosed
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, a := range touched {
		s.ledger.publishStock(a)
	}
	s.events.Publish(sse.EventSessionValidated, map[string]interface{}{"session_id": sessionID, "corrections": len(corrections)})
	s.logger.Info("Inventory session validated",
		zap.String("session_id", sessionID),
		zap.Int("corrections", len(corrections)),
		zap.String("actor", actor))

	result := &ValidateResult{
		Corrections: corrections,
		Message:     summary(msgCorrections, len(corrections)),
	}
	if s.autoArchive && s.archiver != nil {
		key, err := s.archiver.ArchiveSession(ctx, sessionID)
		if err != nil {
			// validation stands; the report can be archived again later
			s.logger.Warn("Inventory report archive failed", zap.String("session_id", sessionID), zap.Error(err))
		} else {
			result.ArchiveKey = key
		}
	}

	if result.Session, err = s.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return result, nil
}

// SessionSummary counting progress
type SessionSummary struct {
	SessionID     string `json:"session_id"`
	Status        string `json:"status"`
	Total         int    `json:"total"`
	Counted       int    `json:"counted"`
	Remaining     int    `json:"remaining"`
	Discrepancies int    `json:"discrepancies"`
}

func (s *ReconciliationService) Summary(ctx context.Context, sessionID string) (*SessionSummary, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sum := &SessionSummary{SessionID: session.ID, Status: session.Status, Total: len(session.Lines)}
	for _, l := range session.Lines {
		if l.Counted == nil {
			sum.Remaining++
			continue
		}
		sum.Counted++
		if l.HasVariance() {
			sum.Discrepancies++
		}
	}
	return sum, nil
}
