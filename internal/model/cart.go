package model

import "time"

// Product is a marketplace item sold by sellers.  Only the fields the
// checkout flow needs are modelled here; catalogue management lives in
// the external product service.
//
// Fields:
//
//	ID         – primary key identifier.
//	Name       – display name.
//	PriceCents – current unit price in cents.
//	Stock      – units available; decremented atomically at checkout.
//	IsActive   – whether the product is purchasable.
type Product struct {
	ID         uint64 // products.id
	Name       string // products.name
	PriceCents int64  // products.price_cents
	Stock      int64  // products.stock
	IsActive   bool   // products.is_active
}

// Cart is a tourist's open shopping cart.  At most one open cart exists
// per tourist; it is cleared when a checkout commits.
//
// Fields:
//
//	ID        – primary key identifier.
//	TouristID – owner (unique among open carts).
//	CreatedAt – timestamp of creation.
type Cart struct {
	ID        uint64    // carts.id
	TouristID uint64    // carts.tourist_id
	CreatedAt time.Time // carts.created_at
}

// CartItem is a line in a cart.  Quantity is always >= 1; line totals are
// computed at read time from the product's current price, never cached.
//
// Fields:
//
//	ID        – primary key identifier.
//	CartID    – owning cart.
//	ProductID – referenced product.
//	Quantity  – units requested (>= 1).
type CartItem struct {
	ID        uint64 // cart_items.id
	CartID    uint64 // cart_items.cart_id
	ProductID uint64 // cart_items.product_id
	Quantity  int64  // cart_items.quantity
}

// Purchase is a settled checkout line: one row per product bought, with
// the price frozen at settlement.  Stock is decremented in the same
// transaction that inserts the row.  Review and rating are each settable
// once, mirroring booking feedback semantics.
//
// Fields:
//
//	ID              – primary key identifier.
//	TouristID       – buyer.
//	ProductID       – product bought.
//	Quantity        – units bought.
//	TotalPriceCents – settled line total in cents.
//	DeliveryAddress – shipping address captured at checkout.
//	PaymentMethod   – "wallet" or "external".
//	Delivered       – toggled by an admin once shipped.
//	Rating          – 1..5, nil until set.
//	Review          – free text, nil until set.
//	PurchasedAt     – settlement timestamp.
type Purchase struct {
	ID              uint64    // purchases.id
	TouristID       uint64    // purchases.tourist_id
	ProductID       uint64    // purchases.product_id
	Quantity        int64     // purchases.quantity
	TotalPriceCents int64     // purchases.total_price_cents
	DeliveryAddress string    // purchases.delivery_address
	PaymentMethod   string    // purchases.payment_method
	Delivered       bool      // purchases.delivered
	Rating          *uint8    // purchases.rating (nullable)
	Review          *string   // purchases.review (nullable)
	PurchasedAt     time.Time // purchases.purchased_at
}
