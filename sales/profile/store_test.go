package profile

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
	storagex "github.com/tanpawarit/sales-assistant/sales/storage"
)

type fakeKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	sets    map[string]int
	deletes   []string
	setErr    error
	deleteErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string][]byte{}, sets: map[string]int{}}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, storagex.ErrNotFound
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = append([]byte(nil), value...)
	f.sets[key]++
	return nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.data, key)
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeKV) Close() error { return nil }

func (f *fakeKV) failSets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setErr = err
}

func (f *fakeKV) failDeletes(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteErr = err
}

func (f *fakeKV) setCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets[key]
}

func (f *fakeKV) raw(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	kv.data[CompanyKey] = []byte("{not json")
	kv.data[CustomerKey] = []byte(`{"name":"Rami","industry":"Retail"}`)

	store := New(kv, Config{Debounce: 10 * time.Millisecond})
	company, customer := store.Load(context.Background())

	if company != contractx.DefaultCompanyContext() {
		t.Fatalf("company = %+v, want defaults", company)
	}
	if customer.Name != "Rami" || customer.Industry != "Retail" {
		t.Fatalf("customer = %+v", customer)
	}
	if store.Customer() != customer {
		t.Fatalf("Customer() = %+v, want loaded record", store.Customer())
	}
}

func TestLoadRejectsInvalidBuyingStage(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	kv.data[CompanyKey] = []byte(`{"companyName":"Acme","buyingStage":"Dreaming"}`)

	store := New(kv, Config{})
	company, customer := store.Load(context.Background())
	if company != contractx.DefaultCompanyContext() {
		t.Fatalf("company = %+v, want defaults", company)
	}
	if customer != contractx.DefaultCustomerContext() {
		t.Fatalf("customer = %+v, want defaults", customer)
	}
}

func TestSaveIsDebounced(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	store := New(kv, Config{Debounce: 40 * time.Millisecond})

	for _, name := range []string{"A", "Ab", "Abc"} {
		customer := store.Customer()
		customer.Name = name
		if err := store.SaveCustomer(customer); err != nil {
			t.Fatalf("SaveCustomer() error = %v", err)
		}
	}

	if got := store.Customer().Name; got != "Abc" {
		t.Fatalf("in-memory name = %q, want Abc", got)
	}
	if n := kv.setCount(CustomerKey); n != 0 {
		t.Fatalf("writes before debounce window = %d, want 0", n)
	}

	waitFor(t, func() bool { return kv.setCount(CustomerKey) > 0 })
	time.Sleep(60 * time.Millisecond)

	if n := kv.setCount(CustomerKey); n != 1 {
		t.Fatalf("writes = %d, want 1", n)
	}
	raw, _ := kv.raw(CustomerKey)
	var saved contractx.CustomerContext
	if err := json.Unmarshal(raw, &saved); err != nil {
		t.Fatalf("unmarshal saved customer: %v", err)
	}
	if saved.Name != "Abc" {
		t.Fatalf("persisted name = %q, want Abc", saved.Name)
	}
}

func TestSaveCompanyValidates(t *testing.T) {
	t.Parallel()

	store := New(newFakeKV(), Config{})
	company := store.Company()
	company.BuyingStage = "Dreaming"

	if err := store.SaveCompany(company); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("SaveCompany() error = %v, want ErrValidation", err)
	}
	if store.Company() != contractx.DefaultCompanyContext() {
		t.Fatal("invalid save must not change the record")
	}
}

func TestFlushWritesPendingImmediately(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	store := New(kv, Config{Debounce: time.Hour})

	company := store.Company()
	company.CompanyName = "Acme"
	if err := store.SaveCompany(company); err != nil {
		t.Fatalf("SaveCompany() error = %v", err)
	}
	if err := store.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if n := kv.setCount(CompanyKey); n != 1 {
		t.Fatalf("writes = %d, want 1", n)
	}

	reloaded := New(kv, Config{})
	got, _ := reloaded.Load(context.Background())
	if got.CompanyName != "Acme" {
		t.Fatalf("reloaded company name = %q, want Acme", got.CompanyName)
	}
}

func TestFlushReportsWriteFailure(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	kv.setErr = errors.New("disk full")
	store := New(kv, Config{Debounce: time.Hour})

	if err := store.SaveCustomer(contractx.CustomerContext{Name: "Sam"}); err != nil {
		t.Fatalf("SaveCustomer() error = %v", err)
	}
	if err := store.Flush(context.Background()); err == nil {
		t.Fatal("expected flush error")
	}
	if store.Customer().Name != "Sam" {
		t.Fatal("in-memory record must survive a failed write")
	}
}

func TestFlushRetriesAfterWriteFailure(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	kv.failSets(errors.New("disk full"))
	store := New(kv, Config{Debounce: time.Hour})

	if err := store.SaveCustomer(contractx.CustomerContext{Name: "Sam"}); err != nil {
		t.Fatalf("SaveCustomer() error = %v", err)
	}
	if err := store.Flush(context.Background()); err == nil {
		t.Fatal("expected flush error")
	}

	kv.failSets(nil)
	if err := store.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if n := kv.setCount(CustomerKey); n != 1 {
		t.Fatalf("customer writes = %d, want 1", n)
	}

	reloaded := New(kv, Config{})
	_, customer := reloaded.Load(context.Background())
	if customer.Name != "Sam" {
		t.Fatalf("reloaded customer name = %q, want Sam", customer.Name)
	}
}

func TestResetKeepsStateWhenDeleteFails(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	kv.data[CompanyKey] = []byte(`{"companyName":"Old","buyingStage":"Interest"}`)
	store := New(kv, Config{Debounce: time.Hour})
	store.Load(context.Background())

	kv.failDeletes(errors.New("connection reset"))
	if err := store.Reset(context.Background()); err == nil {
		t.Fatal("expected reset error")
	}
	if got := store.Company().CompanyName; got != "Old" {
		t.Fatalf("in-memory company = %q, want Old", got)
	}
	if _, ok := kv.raw(CompanyKey); !ok {
		t.Fatal("persisted company removed by a failed reset")
	}

	kv.failDeletes(nil)
	if err := store.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if store.Company() != contractx.DefaultCompanyContext() {
		t.Fatalf("company = %+v, want defaults", store.Company())
	}
	if _, ok := kv.raw(CompanyKey); ok {
		t.Fatal("company record still persisted after reset")
	}
}

func TestResetClearsRecordsAndPendingWrites(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	kv.data[CompanyKey] = []byte(`{"companyName":"Old","buyingStage":"Interest"}`)
	store := New(kv, Config{Debounce: 20 * time.Millisecond})
	store.Load(context.Background())

	if err := store.SaveCustomer(contractx.CustomerContext{Name: "Pending"}); err != nil {
		t.Fatalf("SaveCustomer() error = %v", err)
	}
	if err := store.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	if _, ok := kv.raw(CustomerKey); ok {
		t.Fatal("pending customer write resurrected after reset")
	}
	if _, ok := kv.raw(CompanyKey); ok {
		t.Fatal("company record still persisted after reset")
	}
	if store.Company() != contractx.DefaultCompanyContext() {
		t.Fatalf("company = %+v, want defaults", store.Company())
	}

	fresh := New(kv, Config{})
	company, customer := fresh.Load(context.Background())
	if company != contractx.DefaultCompanyContext() || customer != contractx.DefaultCustomerContext() {
		t.Fatal("load after reset must yield defaults")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	src := New(newFakeKV(), Config{Debounce: time.Hour})
	src.now = func() time.Time { return time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC) }

	company := src.Company()
	company.CompanyName = "Acme"
	company.BuyingStage = contractx.StageNegotiation
	if err := src.SaveCompany(company); err != nil {
		t.Fatalf("SaveCompany() error = %v", err)
	}
	if err := src.SaveCustomer(contractx.CustomerContext{Name: "Lina", Budget: "$10k"}); err != nil {
		t.Fatalf("SaveCustomer() error = %v", err)
	}

	out, err := src.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.Contains(string(out), "\n  \"company\": {") {
		t.Fatalf("export is not indented with two spaces:\n%s", out)
	}
	if !strings.Contains(string(out), `"exportDate": "2024-03-05T10:30:00.000Z"`) {
		t.Fatalf("export date missing:\n%s", out)
	}

	dst := New(newFakeKV(), Config{Debounce: time.Hour})
	if err := dst.Import(out); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if dst.Company() != src.Company() {
		t.Fatalf("company = %+v, want %+v", dst.Company(), src.Company())
	}
	if dst.Customer() != src.Customer() {
		t.Fatalf("customer = %+v, want %+v", dst.Customer(), src.Customer())
	}
}

func TestImportCustomerOnly(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	store := New(kv, Config{Debounce: time.Hour})

	if err := store.Import([]byte(`{"customer":{"name":"Omar"}}`)); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if store.Company() != contractx.DefaultCompanyContext() {
		t.Fatal("company must be untouched when absent from the document")
	}
	if store.Customer().Name != "Omar" {
		t.Fatalf("customer name = %q, want Omar", store.Customer().Name)
	}

	if err := store.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if kv.setCount(CompanyKey) != 0 || kv.setCount(CustomerKey) != 1 {
		t.Fatalf("unexpected writes: company=%d customer=%d", kv.setCount(CompanyKey), kv.setCount(CustomerKey))
	}
}

func TestImportRejectsMalformedDocument(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":      `{"company":`,
		"empty":         "   ",
		"null":          "null",
		"array":         `[1,2]`,
		"bad stage":     `{"company":{"companyName":"X","buyingStage":"Dreaming"},"customer":{"name":"Y"}}`,
		"wrong section": `{"customer":"Omar"}`,
		"missing stage": `{"company":{"companyName":"X"}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := New(newFakeKV(), Config{Debounce: time.Hour})
			err := store.Import([]byte(doc))
			if !errors.Is(err, contractx.ErrImportInvalid) {
				t.Fatalf("Import() error = %v, want ErrImportInvalid", err)
			}
			if store.Company() != contractx.DefaultCompanyContext() || store.Customer() != contractx.DefaultCustomerContext() {
				t.Fatal("rejected import must not mutate records")
			}
		})
	}
}

func TestExportFileName(t *testing.T) {
	t.Parallel()

	got := ExportFileName(time.Date(2025, 1, 9, 23, 0, 0, 0, time.UTC))
	if got != "sales-pro-backup-2025-01-09.json" {
		t.Fatalf("ExportFileName() = %q", got)
	}
}
