package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"invscreen/internal/domain"
	"invscreen/internal/port"
	"invscreen/internal/screening"
)

// MaxBatchSize caps the number of invoices accepted by ScreenBatch.
const MaxBatchSize = 100

// ScreeningResult is the outcome of one screening call.
type ScreeningResult struct {
	ID       uuid.UUID       `json:"screening_id"`
	Ledger   string          `json:"ledger"`
	Verdict  *domain.Verdict `json:"verdict"`
	Appended bool            `json:"appended"`
}

// ScreeningService screens candidate invoices against a ledger.
type ScreeningService interface {
	// Screen compares the invoice with the ledger without modifying it.
	Screen(ctx context.Context, ledger string, inv *domain.InvoiceRecord) (*ScreeningResult, error)
	// Submit screens the invoice and appends it to the ledger when it is CLEAN.
	Submit(ctx context.Context, ledger string, inv *domain.InvoiceRecord) (*ScreeningResult, error)
	// ScreenBatch screens several invoices against one ledger snapshot.
	ScreenBatch(ctx context.Context, ledger string, invoices []domain.InvoiceRecord) ([]ScreeningResult, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Screening, error)
	List(ctx context.Context, ledger string, offset, limit int) ([]domain.Screening, int, error)
}

// ScreeningServiceConfig holds batch and archive settings.
type ScreeningServiceConfig struct {
	BatchConcurrency int
	ArchiveBucket    string
	ArchivePrefix    string
}

type screeningService struct {
	engine  *screening.Engine
	ledgers port.LedgerRepository
	audits  port.ScreeningRepository
	storage port.ObjectStorage
	alerts  port.AlertSender
	cfg     ScreeningServiceConfig
	log     *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

// NewScreeningService creates a ScreeningService. audits and storage may be nil,
// which disables the audit trail and verdict archiving respectively.
func NewScreeningService(
	engine *screening.Engine,
	ledgers port.LedgerRepository,
	audits port.ScreeningRepository,
	storage port.ObjectStorage,
	alerts port.AlertSender,
	cfg ScreeningServiceConfig,
	log *zap.Logger,
) ScreeningService {
	if cfg.BatchConcurrency < 1 {
		cfg.BatchConcurrency = 1
	}
	return &screeningService{
		engine:  engine,
		ledgers: ledgers,
		audits:  audits,
		storage: storage,
		alerts:  alerts,
		cfg:     cfg,
		log:     log.Named("screening"),
		locks:   make(map[string]*sync.Mutex),
		now:     time.Now,
	}
}

func (s *screeningService) ledgerLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *screeningService) Screen(ctx context.Context, ledger string, inv *domain.InvoiceRecord) (*ScreeningResult, error) {
	if inv == nil {
		return nil, domain.ErrInvalidInvoice
	}
	snapshot, err := s.ledgers.LoadLedger(ctx, ledger)
	if err != nil {
		return nil, fmt.Errorf("screeningService.Screen: %w", err)
	}
	verdict := s.engine.Screen(inv, snapshot)
	return s.record(ctx, ledger, inv, verdict, false), nil
}

func (s *screeningService) Submit(ctx context.Context, ledger string, inv *domain.InvoiceRecord) (*ScreeningResult, error) {
	if inv == nil {
		return nil, domain.ErrInvalidInvoice
	}
	if err := domain.ValidateLedgerName(ledger); err != nil {
		return nil, fmt.Errorf("screeningService.Submit: %w", err)
	}
	lock := s.ledgerLock(ledger)
	lock.Lock()
	defer lock.Unlock()

	snapshot, err := s.ledgers.LoadLedger(ctx, ledger)
	if err != nil {
		return nil, fmt.Errorf("screeningService.Submit: %w", err)
	}
	verdict := s.engine.Screen(inv, snapshot)

	appended := false
	if verdict.OverallFlag == domain.FlagClean {
		if err := s.ledgers.AppendClean(ctx, ledger, inv); err != nil {
			return nil, fmt.Errorf("screeningService.Submit append: %w", err)
		}
		appended = true
	}
	return s.record(ctx, ledger, inv, verdict, appended), nil
}

func (s *screeningService) ScreenBatch(ctx context.Context, ledger string, invoices []domain.InvoiceRecord) ([]ScreeningResult, error) {
	switch {
	case len(invoices) == 0:
		return nil, domain.ErrEmptyBatch
	case len(invoices) > MaxBatchSize:
		return nil, fmt.Errorf("%w: %d > %d", domain.ErrBatchTooLarge, len(invoices), MaxBatchSize)
	}

	snapshot, err := s.ledgers.LoadLedger(ctx, ledger)
	if err != nil {
		return nil, fmt.Errorf("screeningService.ScreenBatch: %w", err)
	}

	results := make([]ScreeningResult, len(invoices))
	sem := make(chan struct{}, s.cfg.BatchConcurrency)
	var wg sync.WaitGroup

	for i := range invoices {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{} // acquire
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }() // release

			inv := &invoices[i]
			verdict := s.engine.Screen(inv, snapshot)
			results[i] = *s.record(ctx, ledger, inv, verdict, false)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("screeningService.ScreenBatch: %w", err)
	}
	s.log.Debug("batch screened", zap.String("ledger", ledger), zap.Int("invoices", len(invoices)))
	return results, nil
}

func (s *screeningService) Get(ctx context.Context, id uuid.UUID) (*domain.Screening, error) {
	if s.audits == nil {
		return nil, domain.ErrNotFound
	}
	return s.audits.GetByID(ctx, id)
}

func (s *screeningService) List(ctx context.Context, ledger string, offset, limit int) ([]domain.Screening, int, error) {
	if err := domain.ValidateLedgerName(ledger); err != nil {
		return nil, 0, err
	}
	if s.audits == nil {
		return []domain.Screening{}, 0, nil
	}
	return s.audits.ListByLedger(ctx, ledger, offset, limit)
}

// record runs the side effects of a finished screening. None of them can fail
// the call; errors are logged.
func (s *screeningService) record(ctx context.Context, ledger string, inv *domain.InvoiceRecord, verdict *domain.Verdict, appended bool) *ScreeningResult {
	rec := &domain.Screening{
		ID:        uuid.New(),
		Ledger:    ledger,
		Invoice:   *inv,
		Verdict:   *verdict,
		Appended:  appended,
		CreatedAt: s.now().UTC(),
	}
	log := s.log.With(
		zap.String("screening_id", rec.ID.String()),
		zap.String("ledger", ledger),
		zap.String("invoice_number", inv.InvoiceNumber.String()),
		zap.String("flag", string(verdict.OverallFlag)),
	)

	if s.audits != nil {
		if err := s.audits.Create(ctx, rec); err != nil {
			log.Error("failed to store screening", zap.Error(err))
		}
	}
	if s.storage != nil && s.cfg.ArchiveBucket != "" {
		if err := s.archive(ctx, rec); err != nil {
			log.Error("failed to archive verdict", zap.Error(err))
		}
	}
	if verdict.OverallFlag != domain.FlagClean {
		alert := &domain.FlagAlert{
			ScreeningID:   rec.ID,
			Ledger:        ledger,
			InvoiceNumber: inv.InvoiceNumber.String(),
			VendorName:    inv.VendorName.String(),
			GSTIN:         inv.GSTIN.String(),
			TotalAmount:   inv.TotalAmount,
			Flag:          verdict.OverallFlag,
			Reasons:       verdict.Reasons,
		}
		if err := s.alerts.SendFlagAlert(ctx, alert); err != nil {
			log.Error("failed to send flag alert", zap.Error(err))
		}
	}
	log.Info("invoice screened", zap.Bool("appended", appended), zap.Int("near_duplicates", len(verdict.NearDuplicates)))

	return &ScreeningResult{ID: rec.ID, Ledger: ledger, Verdict: verdict, Appended: appended}
}

func (s *screeningService) archive(ctx context.Context, rec *domain.Screening) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding screening: %w", err)
	}
	_, err = s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.ArchiveBucket,
		Key:         ArchiveKey(s.cfg.ArchivePrefix, rec),
		Body:        bytes.NewReader(body),
		ContentType: "application/json",
		Size:        int64(len(body)),
	})
	return err
}

// ArchiveKey returns "{prefix}/{ledger}/{YYYY}/{MM}/{DD}/{id}.json".
func ArchiveKey(prefix string, rec *domain.Screening) string {
	return path.Join(prefix, rec.Ledger, rec.CreatedAt.Format("2006/01/02"), rec.ID.String()+".json")
}
