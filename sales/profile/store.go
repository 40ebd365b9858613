// Package profile keeps the company and customer records in memory and
// persists them to a storage.KV with debounced writes.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
	storagex "github.com/tanpawarit/sales-assistant/sales/storage"
)

const (
	CompanyKey  = "sales_pro_company_context"
	CustomerKey = "sales_pro_customer_context"

	exportDateLayout = "2006-01-02T15:04:05.000Z07:00"
)

type Config struct {
	Debounce     time.Duration `envconfig:"DEBOUNCE" default:"1s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"5s"`
}

// recordWriter coalesces writes for one key. pending is nil when the stored
// value is up to date.
type recordWriter struct {
	key       string
	debounced func(f func())
	pending   []byte
}

type Store struct {
	kv           storagex.KV
	writeTimeout time.Duration
	now          func() time.Time

	mu       sync.Mutex
	company  contractx.CompanyContext
	customer contractx.CustomerContext

	// writeMu serializes durable writes with Reset.
	writeMu        sync.Mutex
	companyWriter  *recordWriter
	customerWriter *recordWriter
}

var _ contractx.ProfileStore = (*Store)(nil)

// New returns a store holding the defaults. Call Load to restore saved state.
func New(kv storagex.KV, cfg Config) *Store {
	delay := cfg.Debounce
	if delay <= 0 {
		delay = time.Second
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Store{
		kv:           kv,
		writeTimeout: timeout,
		now:          time.Now,
		company:      contractx.DefaultCompanyContext(),
		customer:     contractx.DefaultCustomerContext(),
		companyWriter: &recordWriter{
			key:       CompanyKey,
			debounced: debounce.New(delay),
		},
		customerWriter: &recordWriter{
			key:       CustomerKey,
			debounced: debounce.New(delay),
		},
	}
}

// Load restores the last saved records. Missing or unreadable records fall
// back to the defaults; the failure is logged and never returned.
func (s *Store) Load(ctx context.Context) (contractx.CompanyContext, contractx.CustomerContext) {
	company := loadRecord(ctx, s.kv, CompanyKey, contractx.DefaultCompanyContext(), contractx.CompanyContext.Validate)
	customer := loadRecord(ctx, s.kv, CustomerKey, contractx.DefaultCustomerContext(), nil)

	s.mu.Lock()
	s.company = company
	s.customer = customer
	s.mu.Unlock()

	return company, customer
}

func loadRecord[T any](ctx context.Context, kv storagex.KV, key string, fallback T, validate func(T) error) T {
	raw, err := kv.Get(ctx, key)
	if errors.Is(err, storagex.ErrNotFound) {
		return fallback
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("profile load failed, using defaults")
		return fallback
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("profile record is corrupt, using defaults")
		return fallback
	}
	if validate != nil {
		if err := validate(out); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("profile record is invalid, using defaults")
			return fallback
		}
	}
	return out
}

func (s *Store) Company() contractx.CompanyContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.company
}

func (s *Store) Customer() contractx.CustomerContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customer
}

// SaveCompany replaces the in-memory record immediately and schedules a
// durable write once edits stop for the debounce window.
func (s *Store) SaveCompany(c contractx.CompanyContext) error {
	if err := c.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal company context: %w", err)
	}

	s.mu.Lock()
	s.company = c
	s.mu.Unlock()

	s.schedule(s.companyWriter, payload)
	return nil
}

func (s *Store) SaveCustomer(c contractx.CustomerContext) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal customer context: %w", err)
	}

	s.mu.Lock()
	s.customer = c
	s.mu.Unlock()

	s.schedule(s.customerWriter, payload)
	return nil
}

func (s *Store) schedule(w *recordWriter, payload []byte) {
	s.mu.Lock()
	w.pending = payload
	s.mu.Unlock()

	w.debounced(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		defer cancel()
		_ = s.flushRecord(ctx, w)
	})
}

func (s *Store) flushRecord(ctx context.Context, w *recordWriter) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	payload := w.pending
	w.pending = nil
	s.mu.Unlock()

	if payload == nil {
		return nil
	}
	if err := s.kv.Set(ctx, w.key, payload); err != nil {
		// Keep the edit for the next Flush unless a newer one replaced it.
		s.mu.Lock()
		if w.pending == nil {
			w.pending = payload
		}
		s.mu.Unlock()

		log.Error().Err(err).Str("key", w.key).Msg("profile write failed")
		return fmt.Errorf("persist %s: %w", w.key, err)
	}
	log.Debug().Str("key", w.key).Int("bytes", len(payload)).Msg("profile persisted")
	return nil
}

// Flush writes any pending record now instead of waiting for the timer.
func (s *Store) Flush(ctx context.Context) error {
	return errors.Join(
		s.flushRecord(ctx, s.companyWriter),
		s.flushRecord(ctx, s.customerWriter),
	)
}

// Reset clears the persisted records, then restores both defaults and
// drops pending writes. When a delete fails nothing in memory changes.
func (s *Store) Reset(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := errors.Join(
		s.kv.Delete(ctx, CompanyKey),
		s.kv.Delete(ctx, CustomerKey),
	); err != nil {
		return fmt.Errorf("clear persisted profile: %w", err)
	}

	s.mu.Lock()
	s.company = contractx.DefaultCompanyContext()
	s.customer = contractx.DefaultCustomerContext()
	s.companyWriter.pending = nil
	s.customerWriter.pending = nil
	s.mu.Unlock()
	return nil
}

type exportDocument struct {
	Company    contractx.CompanyContext  `json:"company"`
	Customer   contractx.CustomerContext `json:"customer"`
	ExportDate string                    `json:"exportDate"`
}

type importDocument struct {
	Company  *contractx.CompanyContext  `json:"company"`
	Customer *contractx.CustomerContext `json:"customer"`
}

// Export serializes both records and the export time as indented JSON.
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	doc := exportDocument{
		Company:    s.company,
		Customer:   s.customer,
		ExportDate: s.now().UTC().Format(exportDateLayout),
	}
	s.mu.Unlock()

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export document: %w", err)
	}
	return out, nil
}

// ExportFileName is the suggested file name for an export taken at t.
func ExportFileName(t time.Time) string {
	return "sales-pro-backup-" + t.Format("2006-01-02") + ".json"
}

// Import applies a document produced by Export. Each present section fully
// replaces its record; an absent section leaves the record untouched. Any
// error rejects the whole document.
func (s *Store) Import(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%w: document is empty", contractx.ErrImportInvalid)
	}

	var doc importDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrImportInvalid, err)
	}
	if doc.Company != nil {
		if err := doc.Company.Validate(); err != nil {
			return fmt.Errorf("%w: %v", contractx.ErrImportInvalid, err)
		}
	}

	var companyPayload, customerPayload []byte
	var err error
	if doc.Company != nil {
		if companyPayload, err = json.Marshal(doc.Company); err != nil {
			return fmt.Errorf("%w: %v", contractx.ErrImportInvalid, err)
		}
	}
	if doc.Customer != nil {
		if customerPayload, err = json.Marshal(doc.Customer); err != nil {
			return fmt.Errorf("%w: %v", contractx.ErrImportInvalid, err)
		}
	}

	s.mu.Lock()
	if doc.Company != nil {
		s.company = *doc.Company
	}
	if doc.Customer != nil {
		s.customer = *doc.Customer
	}
	s.mu.Unlock()

	if companyPayload != nil {
		s.schedule(s.companyWriter, companyPayload)
	}
	if customerPayload != nil {
		s.schedule(s.customerWriter, customerPayload)
	}

	log.Info().
		Bool("company", doc.Company != nil).
		Bool("customer", doc.Customer != nil).
		Msg("profile imported")
	return nil
}

// Close flushes pending writes. The underlying KV stays open.
func (s *Store) Close(ctx context.Context) error {
	return s.Flush(ctx)
}
