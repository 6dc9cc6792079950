package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"lorisbot/internal/domain"
)

// Parse decodes a model response into the purchase schema. Models wrap the
// JSON in code fences or prose often enough that the parse is lenient: it
// locates the outermost object, tolerates string-typed numbers, and fills
// defaults for anything missing. A response with no JSON object at all is
// a parse failure, which callers treat like a provider failure.
func Parse(raw string) (*domain.PurchaseInfo, error) {
	doc, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	info := domain.NewPurchaseInfo()
	if v := cleanString(m["store_name"]); v != "" {
		info.StoreName = v
	}
	if v, ok := toFloat(m["amount"]); ok {
		info.Amount = v
	}
	if v := cleanString(m["currency"]); v != "" {
		info.Currency = v
	}
	if v := cleanString(m["date"]); v != "" {
		info.Date = v
	}
	if v := cleanString(m["payment_method"]); v != "" {
		info.PaymentMethod = v
	}
	if v := cleanString(m["category"]); v != "" {
		info.Category = v
	}
	if v, ok := toFloat(m["tax"]); ok {
		info.Tax = v
	}
	if v, ok := toFloat(m["discount"]); ok {
		info.Discount = v
	}
	if items, ok := m["items"].([]any); ok {
		for _, it := range items {
			im, ok := it.(map[string]any)
			if !ok {
				continue
			}
			li := domain.LineItem{Name: cleanString(im["name"])}
			if q, ok := toFloat(im["quantity"]); ok {
				li.Quantity = q
			}
			if p, ok := toFloat(im["price"]); ok {
				li.Price = p
			}
			if li.Name != "" {
				info.Items = append(info.Items, li)
			}
		}
	}

	return &info, nil
}

// extractJSON strips code fences and prose, returning the outermost JSON
// object in the response.
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return s[start : end+1], nil
}

func cleanString(v any) string {
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
		return ""
	}
	return s
}

// toFloat accepts JSON numbers and number-ish strings ("45.90", "45,90",
// "R$ 45.90").
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "R$")
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", ".")
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
