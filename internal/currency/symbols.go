package currency

// symbols maps ISO currency codes to their display symbol.
var symbols = map[string]string{
	"IDR": "Rp",
	"USD": "$",
	"EUR": "€",
	"JPY": "¥",
	"GBP": "£",
	"CNY": "¥",
	"KRW": "₩",
	"SGD": "S$",
	"MYR": "RM",
	"THB": "฿",
	"PHP": "₱",
	"VND": "₫",
	"INR": "₹",
	"AUD": "A$",
	"CAD": "C$",
}

// Symbol returns the display symbol for a currency code, falling back to the
// code itself followed by a space.
func Symbol(code string) string {
	if s, ok := symbols[code]; ok {
		return s
	}
	return code + " "
}
