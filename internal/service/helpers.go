package service

import (
	"github.com/shopspring/decimal"
)

// unknownAssetClass groups holdings that were stored without a class.
const unknownAssetClass = "Unknown"

// roundCurrency rounds to cents.
func roundCurrency(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func assetClassOf(class string) string {
	if class == "" {
		return unknownAssetClass
	}
	return class
}
