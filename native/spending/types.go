package spending

import (
	"fmt"
	"math/big"
)

// Category is a merchant spending category. The ordinal wire values are fixed
// and must not be reordered without a migration.
type Category uint8

const (
	CategoryFood Category = iota
	CategoryMedical
	CategoryShelter
	CategoryUtilities
	CategoryTransport

	// NumCategories is the count of defined categories.
	NumCategories = 5
)

func (c Category) String() string {
	switch c {
	case CategoryFood:
		return "food"
	case CategoryMedical:
		return "medical"
	case CategoryShelter:
		return "shelter"
	case CategoryUtilities:
		return "utilities"
	case CategoryTransport:
		return "transport"
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// Valid reports whether the category is one of the five defined values.
func (c Category) Valid() bool {
	return c < NumCategories
}

// ParseCategory converts a wire ordinal into a Category.
func ParseCategory(v uint8) (Category, error) {
	c := Category(v)
	if !c.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCategory, v)
	}
	return c, nil
}

// CategoryFromName converts a lowercase category name into a Category.
func CategoryFromName(name string) (Category, error) {
	switch name {
	case "food":
		return CategoryFood, nil
	case "medical":
		return CategoryMedical, nil
	case "shelter":
		return CategoryShelter, nil
	case "utilities":
		return CategoryUtilities, nil
	case "transport":
		return CategoryTransport, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, name)
}

// MerchantRecord describes a merchant approved to receive controlled spend.
type MerchantRecord struct {
	Name          string
	Category      uint8
	Location      string
	Active        bool
	RegisteredAt  uint64
	TotalReceived *big.Int
}

// Receipt summarises an accepted spend.
type Receipt struct {
	TxID     uint64
	Category Category
	Amount   *big.Int
}

// BeneficiaryStatus aggregates everything a dashboard needs to render one
// recipient: allowance and spending per category, current balance, and the
// remaining daily budget for the current day bucket.
type BeneficiaryStatus struct {
	Allowances     [NumCategories]*big.Int
	Spent          [NumCategories]*big.Int
	Balance        *big.Int
	DailyRemaining *big.Int
}
