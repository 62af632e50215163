package catalog

// Variant is one purchasable SKU of a product, fixed by color and size.
type Variant struct {
	ID        string   `json:"id"`
	ProductID string   `json:"productId"`
	ColorID   string   `json:"colorId"`
	ColorName string   `json:"color"`
	SizeID    string   `json:"sizeId"`
	SizeName  string   `json:"size"`
	SKU       string   `json:"sku"`
	Price     float64  `json:"price"`
	SalePrice *float64 `json:"salePrice,omitempty"`
	InStock   int      `json:"inStock"`
}

func (v Variant) Available() bool {
	return v.InStock > 0
}
