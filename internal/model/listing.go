package model

// ListingKind selects which holdings a listing escrows from.
type ListingKind string

// Listing kinds.
const (
	KindItem     ListingKind = "item"
	KindMaterial ListingKind = "material"
)

// Valid reports whether k is a known listing kind.
func (k ListingKind) Valid() bool {
	return k == KindItem || k == KindMaterial
}

// Listing is an active market offer. Price is the total for the whole lot.
// A listing only exists while active; buy and cancel remove it.
type Listing struct {
	ID        int64       `json:"id" db:"id"`
	Seller    string      `json:"seller" db:"seller"`
	Kind      ListingKind `json:"kind" db:"kind"`
	Key       string      `json:"key" db:"item_key"`
	Quantity  int64       `json:"quantity" db:"quantity"`
	Price     int64       `json:"price" db:"price"`
	CreatedAt int64       `json:"createdAt" db:"created_at"`
}
