package ledger

// LocationKind distinguishes the two kinds of stock-holding locations
type LocationKind string

const (
	// LocationKindWarehouse is a distribution warehouse
	LocationKindWarehouse LocationKind = "WAREHOUSE"
	// LocationKindShop is a retail pharmacy shop
	LocationKindShop LocationKind = "SHOP"
)

// IsValid checks if the location kind is valid
func (k LocationKind) IsValid() bool {
	switch k {
	case LocationKindWarehouse, LocationKindShop:
		return true
	}
	return false
}

// String returns the string representation
func (k LocationKind) String() string {
	return string(k)
}
