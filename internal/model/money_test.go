package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want Money
	}{
		{"9.99", 999},
		{"10", 1000},
		{"0.5", 50},
		{".75", 75},
		{"5.", 500},
		{"-1.25", -125},
		{"0.995", 100},
		{"0.994", 99},
		{"1e2", 10000},
		{" 3.10 ", 310},
	}

	for _, tt := range tests {
		got, err := ParseMoney(tt.in)
		if err != nil {
			t.Errorf("ParseMoney(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMoney(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseMoney_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1.2.3", "-", ".", "1,000"} {
		if _, err := ParseMoney(in); err == nil {
			t.Errorf("ParseMoney(%q) expected error, got nil", in)
		}
	}
}

// TestMoney_SumHasNoFloatDrift は0.1を10回足しても誤差が出ないことを検証する。
func TestMoney_SumHasNoFloatDrift(t *testing.T) {
	var total Money
	for i := 0; i < 10; i++ {
		total += MustParseMoney("0.10")
	}
	if total.String() != "1.00" {
		t.Errorf("total = %s, want 1.00", total)
	}
}

func TestMoney_String(t *testing.T) {
	tests := []struct {
		in   Money
		want string
	}{
		{0, "0.00"},
		{2997, "29.97"},
		{5, "0.05"},
		{-125, "-1.25"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("Money(%d).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMoney_JSON(t *testing.T) {
	var p ProductSnapshot
	if err := json.Unmarshal([]byte(`{"id":"p1","price":9.99}`), &p); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if p.Price != 999 {
		t.Errorf("Price = %d, want 999", p.Price)
	}

	if err := json.Unmarshal([]byte(`{"id":"p2","price":"12.50"}`), &p); err != nil {
		t.Fatalf("Unmarshal string price error = %v", err)
	}
	if p.Price != 1250 {
		t.Errorf("Price = %d, want 1250", p.Price)
	}

	out, err := json.Marshal(struct {
		Total Money `json:"total"`
	}{Total: 2997})
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	if string(out) != `{"total":29.97}` {
		t.Errorf("Marshal = %s, want {\"total\":29.97}", out)
	}
}

func TestFormatMoney_ContainsAmount(t *testing.T) {
	got := FormatMoney(2997, "USD")
	if !strings.Contains(got, "29.97") {
		t.Errorf("FormatMoney = %q, want to contain 29.97", got)
	}

	// 不明な通貨コードはUSDとして扱う
	got = FormatMoney(100, "???")
	if !strings.Contains(got, "1.00") {
		t.Errorf("FormatMoney(unknown) = %q, want to contain 1.00", got)
	}
}

func TestSumTotals(t *testing.T) {
	lines := []CartLine{
		{ProductID: "p1", UnitPrice: 999, Quantity: 3},
		{ProductID: "p2", UnitPrice: 250, Quantity: 2},
	}
	got := SumTotals(lines)
	if got.TotalItems != 5 {
		t.Errorf("TotalItems = %d, want 5", got.TotalItems)
	}
	if got.TotalPrice != 3497 {
		t.Errorf("TotalPrice = %d, want 3497", got.TotalPrice)
	}

	empty := SumTotals(nil)
	if empty.TotalItems != 0 || empty.TotalPrice != 0 {
		t.Errorf("SumTotals(nil) = %+v, want zero", empty)
	}
}

func TestErrorCode_UnwrapsChain(t *testing.T) {
	err := error(NewLineNotFoundError("p1"))
	wrapped := wrap(err)

	if got := ErrorCode(wrapped); got != ErrCodeLineNotFound {
		t.Errorf("ErrorCode = %q, want %q", got, ErrCodeLineNotFound)
	}
	if !IsCode(wrapped, ErrCodeLineNotFound) {
		t.Error("IsCode should be true for wrapped APIError")
	}
	if IsCode(nil, ErrCodeLineNotFound) {
		t.Error("IsCode(nil) should be false")
	}
}

type wrapped struct{ err error }

func (w wrapped) Error() string { return "wrapped: " + w.err.Error() }
func (w wrapped) Unwrap() error { return w.err }

func wrap(err error) error { return wrapped{err: err} }
