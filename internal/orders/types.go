package orders

// Kind identifies an e-commerce platform.
type Kind string

const (
	KindWoo     Kind = "woo"
	KindShopify Kind = "shopify"
)

func (k Kind) Known() bool {
	return k == KindWoo || k == KindShopify
}

// Raw is a platform specific order payload.
type Raw interface {
	OrderID() int64
}

// Fetched is one newly fetched order tagged with where it came from.
type Fetched struct {
	Source string
	Kind   Kind
	Order  Raw
}
