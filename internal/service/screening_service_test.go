package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"invscreen/internal/domain"
	"invscreen/internal/port"
	"invscreen/internal/repository/csvledger"
	"invscreen/internal/screening"
	"invscreen/internal/service"
	"invscreen/mocks"
)

func sampleInvoice(number string) domain.InvoiceRecord {
	return domain.InvoiceRecord{
		InvoiceNumber: domain.Text(number),
		Date:          "2025-01-10",
		VendorName:    "Acme Supplies",
		GSTIN:         "27AAPFU0939F1ZV",
		LineItems: domain.LineItems{
			{Description: "Widget", HSNSAC: "8471", Quantity: 2, UnitPrice: 100, Tax: 36},
		},
		CGST:        18,
		SGST:        18,
		TotalAmount: 236,
	}
}

func emptyLedger(name string) *domain.Ledger {
	return &domain.Ledger{Name: name, Entries: []domain.LedgerEntry{}, Skipped: []domain.SkipReason{}}
}

type fixture struct {
	ledgers *mocks.MockLedgerRepository
	audits  *mocks.MockScreeningRepository
	storage *mocks.MockObjectStorage
	alerts  *mocks.MockAlertSender
}

func newFixture() *fixture {
	return &fixture{
		ledgers: new(mocks.MockLedgerRepository),
		audits:  new(mocks.MockScreeningRepository),
		storage: new(mocks.MockObjectStorage),
		alerts:  new(mocks.MockAlertSender),
	}
}

func (f *fixture) service(cfg service.ScreeningServiceConfig) service.ScreeningService {
	return service.NewScreeningService(
		screening.NewEngine(screening.DefaultOptions()),
		f.ledgers, f.audits, f.storage, f.alerts, cfg, zap.NewNop(),
	)
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.ledgers.AssertExpectations(t)
	f.audits.AssertExpectations(t)
	f.storage.AssertExpectations(t)
	f.alerts.AssertExpectations(t)
}

func TestScreen_EmptyLedgerIsClean(t *testing.T) {
	f := newFixture()
	inv := sampleInvoice("INV-1")

	f.ledgers.On("LoadLedger", mock.Anything, "main").Return(emptyLedger("main"), nil)
	f.audits.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.Screening) bool {
		return s.Ledger == "main" && !s.Appended && s.Verdict.OverallFlag == domain.FlagClean
	})).Return(nil)

	res, err := f.service(service.ScreeningServiceConfig{}).Screen(context.Background(), "main", &inv)
	require.NoError(t, err)
	assert.Equal(t, domain.FlagClean, res.Verdict.OverallFlag)
	assert.False(t, res.Appended)
	assert.Equal(t, "main", res.Ledger)
	f.assertExpectations(t)
	f.alerts.AssertNotCalled(t, "SendFlagAlert", mock.Anything, mock.Anything)
}

func TestScreen_ExactDuplicateSendsAlert(t *testing.T) {
	f := newFixture()
	inv := sampleInvoice("INV-1")
	ledger := emptyLedger("main")
	ledger.Entries = append(ledger.Entries, domain.LedgerEntry{Index: 7, Invoice: sampleInvoice("INV-1")})

	f.ledgers.On("LoadLedger", mock.Anything, "main").Return(ledger, nil)
	f.audits.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
	f.alerts.On("SendFlagAlert", mock.Anything, mock.MatchedBy(func(a *domain.FlagAlert) bool {
		return a.Flag == domain.FlagExactDuplicate && a.InvoiceNumber == "INV-1" && a.Ledger == "main"
	})).Return(nil)

	res, err := f.service(service.ScreeningServiceConfig{}).Screen(context.Background(), "main", &inv)
	require.NoError(t, err, "audit failures must not fail screening")
	assert.True(t, res.Verdict.ExactDuplicate)
	require.NotNil(t, res.Verdict.ExactDuplicateMatch)
	assert.Equal(t, int64(7), *res.Verdict.ExactDuplicateMatch)
	f.assertExpectations(t)
}

func TestScreen_AlertFailureIsSwallowed(t *testing.T) {
	f := newFixture()
	inv := sampleInvoice("INV-1")
	ledger := emptyLedger("main")
	ledger.Entries = append(ledger.Entries, domain.LedgerEntry{Index: 0, Invoice: sampleInvoice("INV-1")})

	f.ledgers.On("LoadLedger", mock.Anything, "main").Return(ledger, nil)
	f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.alerts.On("SendFlagAlert", mock.Anything, mock.Anything).Return(errors.New("ses throttled"))

	res, err := f.service(service.ScreeningServiceConfig{}).Screen(context.Background(), "main", &inv)
	require.NoError(t, err)
	assert.Equal(t, domain.FlagExactDuplicate, res.Verdict.OverallFlag)
}

func TestScreen_LedgerUnavailable(t *testing.T) {
	f := newFixture()
	inv := sampleInvoice("INV-1")
	f.ledgers.On("LoadLedger", mock.Anything, "main").
		Return(nil, fmt.Errorf("ledgerRepo.LoadLedger: %w", domain.ErrLedgerUnavailable))

	res, err := f.service(service.ScreeningServiceConfig{}).Screen(context.Background(), "main", &inv)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrLedgerUnavailable)
	f.audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestScreen_NilInvoice(t *testing.T) {
	f := newFixture()
	_, err := f.service(service.ScreeningServiceConfig{}).Screen(context.Background(), "main", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInvoice)
}

func TestScreen_ArchivesVerdict(t *testing.T) {
	f := newFixture()
	inv := sampleInvoice("INV-1")

	f.ledgers.On("LoadLedger", mock.Anything, "main").Return(emptyLedger("main"), nil)
	f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "verdict-archive" &&
			strings.HasPrefix(in.Key, "verdicts/main/") &&
			strings.HasSuffix(in.Key, ".json") &&
			in.ContentType == "application/json" &&
			in.Size > 0
	})).Return(nil, errors.New("bucket missing"))

	cfg := service.ScreeningServiceConfig{ArchiveBucket: "verdict-archive", ArchivePrefix: "verdicts"}
	res, err := f.service(cfg).Screen(context.Background(), "main", &inv)
	require.NoError(t, err)
	assert.NotNil(t, res.Verdict)
	f.assertExpectations(t)
}

func TestScreen_NoArchiveWithoutBucket(t *testing.T) {
	f := newFixture()
	inv := sampleInvoice("INV-1")
	f.ledgers.On("LoadLedger", mock.Anything, "main").Return(emptyLedger("main"), nil)
	f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service(service.ScreeningServiceConfig{}).Screen(context.Background(), "main", &inv)
	require.NoError(t, err)
	f.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestSubmit_AppendsWhenClean(t *testing.T) {
	f := newFixture()
	inv := sampleInvoice("INV-1")

	f.ledgers.On("LoadLedger", mock.Anything, "main").Return(emptyLedger("main"), nil)
	f.ledgers.On("AppendClean", mock.Anything, "main", &inv).Return(nil)
	f.audits.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.Screening) bool {
		return s.Appended
	})).Return(nil)

	res, err := f.service(service.ScreeningServiceConfig{}).Submit(context.Background(), "main", &inv)
	require.NoError(t, err)
	assert.True(t, res.Appended)
	f.assertExpectations(t)
}

func TestSubmit_DoesNotAppendFlagged(t *testing.T) {
	f := newFixture()
	inv := sampleInvoice("INV-1")
	ledger := emptyLedger("main")
	ledger.Entries = append(ledger.Entries, domain.LedgerEntry{Index: 0, Invoice: sampleInvoice("INV-1")})

	f.ledgers.On("LoadLedger", mock.Anything, "main").Return(ledger, nil)
	f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.alerts.On("SendFlagAlert", mock.Anything, mock.Anything).Return(nil)

	res, err := f.service(service.ScreeningServiceConfig{}).Submit(context.Background(), "main", &inv)
	require.NoError(t, err)
	assert.False(t, res.Appended)
	f.ledgers.AssertNotCalled(t, "AppendClean", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_AppendError(t *testing.T) {
	f := newFixture()
	inv := sampleInvoice("INV-1")
	f.ledgers.On("LoadLedger", mock.Anything, "main").Return(emptyLedger("main"), nil)
	f.ledgers.On("AppendClean", mock.Anything, "main", mock.Anything).Return(errors.New("disk full"))

	res, err := f.service(service.ScreeningServiceConfig{}).Submit(context.Background(), "main", &inv)
	assert.Nil(t, res)
	assert.ErrorContains(t, err, "disk full")
	f.audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmit_InvalidLedgerName(t *testing.T) {
	f := newFixture()
	inv := sampleInvoice("INV-1")

	_, err := f.service(service.ScreeningServiceConfig{}).Submit(context.Background(), "../etc", &inv)
	assert.ErrorIs(t, err, domain.ErrInvalidLedgerName)
	f.ledgers.AssertNotCalled(t, "LoadLedger", mock.Anything, mock.Anything)
	f.ledgers.AssertNotCalled(t, "AppendClean", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestSubmit_ConcurrentSameInvoiceAppendsOnce(t *testing.T) {
	repo := csvledger.New(t.TempDir())
	alerts := new(mocks.MockAlertSender)
	alerts.On("SendFlagAlert", mock.Anything, mock.Anything).Return(nil)

	svc := service.NewScreeningService(
		screening.NewEngine(screening.DefaultOptions()),
		repo, nil, nil, alerts, service.ScreeningServiceConfig{}, zap.NewNop(),
	)

	var wg sync.WaitGroup
	var mu sync.Mutex
	appended := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv := sampleInvoice("INV-1")
			res, err := svc.Submit(context.Background(), "main", &inv)
			if !assert.NoError(t, err) {
				return
			}
			if res.Appended {
				mu.Lock()
				appended++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, appended)
	l, err := repo.LoadLedger(context.Background(), "main")
	require.NoError(t, err)
	assert.Len(t, l.Entries, 1)
}

func TestScreenBatch_Limits(t *testing.T) {
	f := newFixture()
	svc := f.service(service.ScreeningServiceConfig{BatchConcurrency: 2})

	_, err := svc.ScreenBatch(context.Background(), "main", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyBatch)

	_, err = svc.ScreenBatch(context.Background(), "main", make([]domain.InvoiceRecord, service.MaxBatchSize+1))
	assert.ErrorIs(t, err, domain.ErrBatchTooLarge)

	f.ledgers.AssertNotCalled(t, "LoadLedger", mock.Anything, mock.Anything)
}

func TestScreenBatch_PreservesOrderAndLoadsOnce(t *testing.T) {
	f := newFixture()
	ledger := emptyLedger("main")
	ledger.Entries = append(ledger.Entries, domain.LedgerEntry{Index: 0, Invoice: sampleInvoice("INV-1")})

	f.ledgers.On("LoadLedger", mock.Anything, "main").Return(ledger, nil).Once()
	f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.alerts.On("SendFlagAlert", mock.Anything, mock.Anything).Return(nil)

	batch := make([]domain.InvoiceRecord, 0, 12)
	for i := 0; i < 12; i++ {
		inv := sampleInvoice(fmt.Sprintf("ZX-%03d", i*37))
		inv.GSTIN = "29AABCT1332L1ZU"
		inv.VendorName = domain.Text(fmt.Sprintf("Vendor %d", i))
		inv.TotalAmount = domain.Amount(1000 * (i + 1))
		batch = append(batch, inv)
	}
	batch[5] = sampleInvoice("INV-1")

	results, err := f.service(service.ScreeningServiceConfig{BatchConcurrency: 3}).
		ScreenBatch(context.Background(), "main", batch)
	require.NoError(t, err)
	require.Len(t, results, len(batch))

	for i, res := range results {
		require.NotNil(t, res.Verdict, "result %d", i)
		assert.False(t, res.Appended)
		assert.Equal(t, screening.Fingerprint(&batch[i]), res.Verdict.InvoiceHash, "result %d out of order", i)
	}
	assert.Equal(t, domain.FlagExactDuplicate, results[5].Verdict.OverallFlag)
	f.ledgers.AssertNotCalled(t, "AppendClean", mock.Anything, mock.Anything, mock.Anything)
	f.ledgers.AssertNumberOfCalls(t, "LoadLedger", 1)
}

func TestScreenBatch_CanceledContext(t *testing.T) {
	f := newFixture()
	f.ledgers.On("LoadLedger", mock.Anything, "main").Return(emptyLedger("main"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.service(service.ScreeningServiceConfig{}).
		ScreenBatch(ctx, "main", []domain.InvoiceRecord{sampleInvoice("INV-1")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetAndList_WithoutAuditRepository(t *testing.T) {
	svc := service.NewScreeningService(
		screening.NewEngine(screening.DefaultOptions()),
		new(mocks.MockLedgerRepository), nil, nil, new(mocks.MockAlertSender),
		service.ScreeningServiceConfig{}, zap.NewNop(),
	)

	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	items, total, err := svc.List(context.Background(), "main", 0, 20)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)

	_, _, err = svc.List(context.Background(), "Bad Name", 0, 20)
	assert.ErrorIs(t, err, domain.ErrInvalidLedgerName)
}

func TestArchiveKey(t *testing.T) {
	rec := &domain.Screening{ID: uuid.New(), Ledger: "main", CreatedAt: time.Date(2025, 3, 5, 23, 10, 0, 0, time.UTC)}
	key := service.ArchiveKey("verdicts", rec)
	assert.Equal(t, "verdicts/main/2025/03/05/"+rec.ID.String()+".json", key)
}
