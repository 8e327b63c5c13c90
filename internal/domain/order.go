package domain

// Order is a purchase proposal: how much of an item to buy for a warehouse.
type Order struct {
	Item      Item      `json:"item"`
	Quantity  int       `json:"quantity"`
	Warehouse Warehouse `json:"warehouse"`
}

// NewOrder builds an order, defaulting the warehouse to Home.
func NewOrder(item Item, quantity int, warehouse Warehouse) Order {
	if warehouse == "" {
		warehouse = Home
	}
	return Order{Item: item, Quantity: quantity, Warehouse: warehouse}
}

// Equal reports whether two orders name the same item, quantity and warehouse.
func (o Order) Equal(other Order) bool {
	return o.Item.Equal(other.Item) &&
		o.Quantity == other.Quantity &&
		o.Warehouse.String() == other.Warehouse.String()
}

// Escalation raises an item's required on-hand level after a stockout.
type Escalation struct {
	SKU       string    `json:"sku"`
	Warehouse Warehouse `json:"warehouse"`
	From      int       `json:"from"`
	To        int       `json:"to"`
}

// StockLevel is one (item, warehouse) row of a stock snapshot.
type StockLevel struct {
	SKU       string    `json:"sku"`
	Warehouse Warehouse `json:"warehouse"`
	OnHand    int       `json:"on_hand"`
	OnOrder   int       `json:"on_order"`
}
