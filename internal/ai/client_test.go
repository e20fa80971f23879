package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// completionServer returns a test server that answers every chat completion
// with the given JSON content string.
func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func testClient(url string) *Client {
	return NewClient(Config{APIKey: "test-key", APIURL: url})
}

func TestSuggestItems(t *testing.T) {
	server := completionServer(t, `{"items": [
		{"name": "Arroz", "quantity": 2, "unit": "kg", "category": "Mercearia"},
		{"name": "  ", "quantity": 1, "unit": "un"},
		{"name": "Leite", "quantity": 0, "unit": "L"}
	]}`)
	defer server.Close()

	items, err := testClient(server.URL).SuggestItems(context.Background(), "compras do mês")
	if err != nil {
		t.Fatalf("suggest items: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items (blank name dropped), got %d", len(items))
	}
	if items[0].Name != "Arroz" || items[0].Quantity != 2 {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].Quantity != 1 {
		t.Errorf("zero quantity should default to 1, got %v", items[1].Quantity)
	}
}

func TestSuggestItemsEmpty(t *testing.T) {
	server := completionServer(t, `{"items": []}`)
	defer server.Close()

	items, err := testClient(server.URL).SuggestItems(context.Background(), "xyzzy")
	if err != nil {
		t.Fatalf("suggest items: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected 0 items, got %d", len(items))
	}
}

func TestValidateItems(t *testing.T) {
	server := completionServer(t, `{"items": [{"name": "Arroz", "quantity": 1, "unit": "kg"}], "confidence": 0.9}`)
	defer server.Close()

	result, err := testClient(server.URL).ValidateItems(context.Background(), []SuggestedItem{
		{Name: "Arroz", Quantity: 1, Unit: "kg"},
		{Name: "Televisão", Quantity: 1, Unit: "un"},
	})
	if err != nil {
		t.Fatalf("validate items: %v", err)
	}
	if len(result.Items) != 1 {
		t.Errorf("expected 1 item after filtering, got %d", len(result.Items))
	}
	if result.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", result.Confidence)
	}
}

func TestParseReceipt(t *testing.T) {
	server := completionServer(t, `{"store_name": "Supermercado Azul", "date": "2026-08-14", "lines": [
		{"name": "Arroz 5kg", "quantity": 1, "unit_price": 24.9, "total": 24.9},
		{"name": "Banana", "quantity": 2, "unit_price": 0, "total": 9.8}
	], "total": 34.7}`)
	defer server.Close()

	receipt, err := testClient(server.URL).ParseReceipt(context.Background(), "ARROZ 5KG 24,90\nBANANA 2x 9,80")
	if err != nil {
		t.Fatalf("parse receipt: %v", err)
	}
	if receipt.StoreName != "Supermercado Azul" {
		t.Errorf("store = %q", receipt.StoreName)
	}
	if len(receipt.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(receipt.Lines))
	}
	// Missing unit price is derived from total/quantity.
	if receipt.Lines[1].UnitPrice != 4.9 {
		t.Errorf("derived unit price = %v, want 4.9", receipt.Lines[1].UnitPrice)
	}
}

func TestPredictSpending(t *testing.T) {
	server := completionServer(t, `{"next_month_total": 820.5, "trend": "rising", "summary": "Gastos em alta."}`)
	defer server.Close()

	p, err := testClient(server.URL).PredictSpending(context.Background(), []MonthSpend{
		{Month: "2026-06", Total: 700},
		{Month: "2026-07", Total: 760},
		{Month: "2026-08", Total: 800},
	})
	if err != nil {
		t.Fatalf("predict spending: %v", err)
	}
	if p.NextMonthTotal != 820.5 || p.Trend != "rising" {
		t.Errorf("prediction = %+v", p)
	}
}

func TestCompleteRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": `{"items": []}`}}},
		})
	}))
	defer server.Close()

	_, err := testClient(server.URL).SuggestItems(context.Background(), "teste")
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testClient(server.URL).SuggestItems(context.Background(), "teste")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (4xx must not be retried)", calls.Load())
	}
}
