package domain

// currencyPrecision lists ISO 4217 minor units for currencies that do not use
// the default of 2.
var currencyPrecision = map[string]int32{
	"BHD": 3,
	"IQD": 3,
	"JOD": 3,
	"JPY": 0,
	"KRW": 0,
	"KWD": 3,
	"OMR": 3,
	"TND": 3,
	"VND": 0,
}

// CurrencyPrecision returns the number of decimal places amounts in the given
// currency are rounded to.
func CurrencyPrecision(currencyCode string) int32 {
	if p, ok := currencyPrecision[currencyCode]; ok {
		return p
	}
	return 2
}
