package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Money は通貨の最小単位（セント）で表した金額。
// 浮動小数点の加算誤差を避けるため、合計計算はすべて整数で行う。
type Money int64

// ParseMoney は "9.99" のような10進表記の金額をMoneyに変換する。
// float64を経由せず文字列の桁から直接セントを求める。
// 小数第3位以下は四捨五入する。指数表記のみfloat64で解釈する。
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		return Money(math.Round(f * 100)), nil
	}

	raw := s
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}

	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || units > math.MaxInt64/100-1 {
		return 0, fmt.Errorf("amount out of range %q", raw)
	}

	frac := fracPart + "00"
	cents := units*100 + int64(frac[0]-'0')*10 + int64(frac[1]-'0')
	if len(fracPart) > 2 && fracPart[2] >= '5' {
		cents++
	}
	if neg {
		cents = -cents
	}
	return Money(cents), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// MustParseMoney はParseMoneyのパニック版。定数やテストデータ用。
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Mul は数量を掛けた金額を返す。
func (m Money) Mul(quantity int) Money {
	return m * Money(quantity)
}

// Float64 は表示用に金額を通貨単位のfloat64で返す。計算には使用しないこと。
func (m Money) Float64() float64 {
	return float64(m) / 100
}

// String は "29.97" 形式の文字列を返す。
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON は金額をJSONの数値（小数点以下2桁）として出力する。
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON はJSONの数値または文字列の金額を読み込む。
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*m = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// UnmarshalYAML はYAMLのスカラー値（9.99 や "9.99"）から金額を読み込む。
func (m *Money) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseMoney(value.Value)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// FormatMoney は通貨記号付きの表示用文字列を返す。
// currencyCodeがISO 4217として解釈できない場合はUSDとして扱う。
func FormatMoney(m Money, currencyCode string) string {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		unit = currency.USD
	}
	p := message.NewPrinter(language.English)
	return p.Sprint(currency.Symbol(unit.Amount(m.Float64())))
}
