package domain

import "github.com/shopspring/decimal"

// Resource is a numeric per-user balance owned by the ledger.
type Resource string

const (
	ResourceWater      Resource = "water"
	ResourceHeavyWater Resource = "heavy_water"
	ResourceBoosters   Resource = "boosters"
	ResourceSBR        Resource = "sbr"
	ResourceUSDT       Resource = "usdt"
	ResourceTON        Resource = "ton"
	ResourcePatchParts Resource = "patch_parts"
)

// CurrencyScale is the number of fractional digits kept for USDT and TON.
const CurrencyScale = 6

// PatchPartsPerPatch parts assemble into one patch.
const PatchPartsPerPatch = 10

var resources = map[Resource]bool{
	ResourceWater:      true,
	ResourceHeavyWater: true,
	ResourceBoosters:   true,
	ResourceSBR:        true,
	ResourceUSDT:       true,
	ResourceTON:        true,
	ResourcePatchParts: true,
}

// ParseResource validates a resource name.
func ParseResource(s string) (Resource, bool) {
	r := Resource(s)
	return r, resources[r]
}

// Fractional reports whether the resource holds decimal amounts.
func (r Resource) Fractional() bool {
	return r == ResourceUSDT || r == ResourceTON
}

// ValidAmount reports whether amount is representable for the resource:
// whole units for game resources, at most CurrencyScale digits for currencies.
func (r Resource) ValidAmount(amount decimal.Decimal) bool {
	if r.Fractional() {
		return amount.Equal(amount.Truncate(CurrencyScale))
	}
	return amount.IsInteger()
}
