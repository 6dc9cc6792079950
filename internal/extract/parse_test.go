package extract

import (
	"strings"
	"testing"

	"lorisbot/internal/domain"
)

func TestParse_WellFormedResponse(t *testing.T) {
	raw := `{
		"store_name": "Mercado Central",
		"amount": 45.90,
		"currency": "R$",
		"date": "2026-08-01 14:32:00",
		"payment_method": "credit card",
		"category": "Groceries"
	}`

	info, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.StoreName != "Mercado Central" {
		t.Fatalf("unexpected store: %q", info.StoreName)
	}
	if info.Amount != 45.90 {
		t.Fatalf("unexpected amount: %v", info.Amount)
	}
	if info.Category != "Groceries" {
		t.Fatalf("unexpected category: %q", info.Category)
	}
}

func TestParse_CodeFencedResponse(t *testing.T) {
	raw := "```json\n{\"store_name\": \"Padaria do Ze\", \"amount\": 12.5}\n```"

	info, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.StoreName != "Padaria do Ze" || info.Amount != 12.5 {
		t.Fatalf("unexpected result: %+v", info)
	}
}

func TestParse_ProseAroundJSON(t *testing.T) {
	raw := `Here is the extracted information:
{"store_name": "Farmacia Popular", "amount": 23.4}
Let me know if you need anything else.`

	info, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.StoreName != "Farmacia Popular" {
		t.Fatalf("unexpected store: %q", info.StoreName)
	}
}

func TestParse_MissingFieldsGetDefaults(t *testing.T) {
	info, err := Parse(`{"amount": 10}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.StoreName != domain.DefaultStoreName {
		t.Fatalf("expected default store, got %q", info.StoreName)
	}
	if info.Currency != domain.DefaultCurrency {
		t.Fatalf("expected default currency, got %q", info.Currency)
	}
	if info.Date != domain.DefaultDate {
		t.Fatalf("expected default date, got %q", info.Date)
	}
	if info.PaymentMethod != domain.DefaultPaymentMethod {
		t.Fatalf("expected default payment method, got %q", info.PaymentMethod)
	}
	if info.Category != domain.DefaultCategory {
		t.Fatalf("expected default category, got %q", info.Category)
	}
}

func TestParse_NullAndNoneStrings(t *testing.T) {
	info, err := Parse(`{"store_name": "null", "category": "None"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.StoreName != domain.DefaultStoreName {
		t.Fatalf("expected 'null' treated as missing, got %q", info.StoreName)
	}
	if info.Category != domain.DefaultCategory {
		t.Fatalf("expected 'None' treated as missing, got %q", info.Category)
	}
}

func TestParse_StringTypedNumbers(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{`{"amount": "45.90"}`, 45.90},
		{`{"amount": "45,90"}`, 45.90},
		{`{"amount": "R$ 45.90"}`, 45.90},
		{`{"amount": "$12"}`, 12},
	}
	for _, tc := range cases {
		info, err := Parse(tc.raw)
		if err != nil {
			t.Fatalf("Parse(%s): %v", tc.raw, err)
		}
		if info.Amount != tc.want {
			t.Fatalf("Parse(%s): amount = %v, want %v", tc.raw, info.Amount, tc.want)
		}
	}
}

func TestParse_UnparsableAmountKeepsDefault(t *testing.T) {
	info, err := Parse(`{"amount": "a lot"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Amount != 0 {
		t.Fatalf("expected default amount 0, got %v", info.Amount)
	}
}

func TestParse_Items(t *testing.T) {
	raw := `{
		"store_name": "Mercado Central",
		"items": [
			{"name": "Arroz 5kg", "quantity": 1, "price": "22,90"},
			{"name": "", "price": 3.0},
			"not-an-object"
		]
	}`

	info, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(info.Items) != 1 {
		t.Fatalf("expected 1 valid item, got %d", len(info.Items))
	}
	if info.Items[0].Name != "Arroz 5kg" || info.Items[0].Price != 22.90 {
		t.Fatalf("unexpected item: %+v", info.Items[0])
	}
}

func TestParse_NoJSONObject(t *testing.T) {
	for _, raw := range []string{"", "I could not extract anything.", "```json\n```"} {
		if _, err := Parse(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	if _, err := Parse(`{"store_name": "Mercado`); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestBuildPrompt_ContainsText(t *testing.T) {
	prompt := BuildPrompt("gastei 50 reais no mercado")
	if !strings.Contains(prompt, "gastei 50 reais no mercado") {
		t.Fatal("expected prompt to contain the input text")
	}
	if !strings.Contains(prompt, "store_name") {
		t.Fatal("expected prompt to contain the schema")
	}
}
