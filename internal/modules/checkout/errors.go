package checkout

import "fmt"

type OutOfStockItem struct {
	ProductID   string
	ProductName string
	VariantID   string // empty when stock is tracked on the product
	Requested   int
	Available   int
}

type OutOfStockError struct {
	Items []OutOfStockItem
}

func (e *OutOfStockError) Error() string {
	if len(e.Items) == 0 {
		return "insufficient stock"
	}
	it := e.Items[0]
	return fmt.Sprintf("insufficient stock: %s requested=%d available=%d", it.ProductName, it.Requested, it.Available)
}
