package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
	"github.com/kirillkom/catalog-archive-analyzer/internal/infrastructure/resilience"
)

func TestClassifyArchiveSendsRawBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != classifyPath || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Content-Type"); got != "application/zip" {
			t.Errorf("unexpected content type %q", got)
		}
		if got := r.Header.Get("X-Archive-Name"); got != "batch.zip" {
			t.Errorf("unexpected archive name %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "PK-bytes" {
			t.Errorf("unexpected body %q", body)
		}
		_, _ = w.Write([]byte(`{"has_spreadsheet":true,"spreadsheet_file_name":"product_import.xlsx","has_image_folder":true,"image_count":2,"total_byte_size":30,"sku_list":["A1"]}`))
	}))
	defer server.Close()

	client, err := New(server.URL+"/", Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	result, err := client.ClassifyArchive(context.Background(), "batch.zip", []byte("PK-bytes"))
	if err != nil {
		t.Fatalf("ClassifyArchive() error = %v", err)
	}
	if !result.HasSpreadsheet || result.ImageCount != 2 || result.TotalByteSize != 30 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.SkuFolders == nil || result.SkusMissingMainImage == nil {
		t.Fatalf("expected normalized slices, got %+v", result)
	}
}

func TestClassifyArchiveRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"image_count":1}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
	client, err := New(server.URL, Options{Executor: exec})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	result, err := client.ClassifyArchive(context.Background(), "a.zip", []byte("x"))
	if err != nil {
		t.Fatalf("ClassifyArchive() error = %v", err)
	}
	if result.ImageCount != 1 || calls.Load() != 2 {
		t.Fatalf("expected success on second call, result=%+v calls=%d", result, calls.Load())
	}
}

func TestClassifyArchiveStatusErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTemporary bool
	}{
		{name: "bad request", status: http.StatusBadRequest, wantTemporary: false},
		{name: "rate limited", status: http.StatusTooManyRequests, wantTemporary: true},
		{name: "bad gateway", status: http.StatusBadGateway, wantTemporary: true},
		{name: "not implemented", status: http.StatusNotImplemented, wantTemporary: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "analyzer says no", tc.status)
			}))
			defer server.Close()

			client, err := New(server.URL, Options{})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			_, err = client.ClassifyArchive(context.Background(), "a.zip", []byte("x"))
			if err == nil {
				t.Fatalf("expected error")
			}
			var statusErr *HTTPStatusError
			if !errors.As(err, &statusErr) || statusErr.StatusCode != tc.status {
				t.Fatalf("expected HTTPStatusError %d, got %v", tc.status, err)
			}
			if !strings.Contains(err.Error(), "analyzer says no") {
				t.Fatalf("expected response body in error, got %v", err)
			}
			if got := domain.IsKind(err, domain.ErrTemporary); got != tc.wantTemporary {
				t.Fatalf("IsKind(ErrTemporary) = %v, want %v", got, tc.wantTemporary)
			}
		})
	}
}

func retryingExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
}

func TestClassifyArchiveDoesNotRetryMalformedJSON(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"image_count":`))
	}))
	defer server.Close()

	client, err := New(server.URL, Options{Executor: retryingExecutor(), RetryBudget: time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = client.ClassifyArchive(context.Background(), "a.zip", []byte("x"))
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("malformed response must not be temporary: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestClassifyArchiveDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unsupported archive", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client, err := New(server.URL, Options{Executor: retryingExecutor(), RetryBudget: time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := client.ClassifyArchive(context.Background(), "a.zip", []byte("x")); err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestRetryPolicyFitsTimeoutBudget(t *testing.T) {
	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    5,
		RetryInitialBackoff: 500 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Second,
		RetryMultiplier:     2,
	})
	client, err := New("http://analyzer", Options{Executor: exec, Timeout: time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	var total time.Duration
	for _, wait := range client.policy.Waits() {
		total += wait
	}
	if total > 500*time.Millisecond {
		t.Fatalf("retry backoff %s does not fit a 1s budget: %+v", total, client.policy)
	}
	if client.policy.MaxAttempts >= 5 {
		t.Fatalf("expected fewer attempts than the shared policy, got %+v", client.policy)
	}
}

func TestClassifyRemoteError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		record    bool
		reason    string
	}{
		{name: "canceled", err: context.Canceled, reason: "canceled"},
		{name: "deadline", err: context.DeadlineExceeded, record: true, reason: "deadline"},
		{name: "unavailable", err: &HTTPStatusError{StatusCode: 503}, retryable: true, record: true, reason: "status_503"},
		{name: "unprocessable", err: &HTTPStatusError{StatusCode: 422}, reason: "status_422"},
		{name: "malformed", err: &MalformedResponseError{Operation: "classify", Err: io.ErrUnexpectedEOF}, record: true, reason: "malformed_response"},
		{name: "other", err: errors.New("boom"), record: true, reason: "unknown"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyRemoteError(tc.err)
			if got.Retryable != tc.retryable || got.RecordFailure != tc.record || got.Reason != tc.reason {
				t.Fatalf("classifyRemoteError(%v) = %+v", tc.err, got)
			}
		})
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New("  ", Options{}); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}
