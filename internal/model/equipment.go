package model

// EquipmentItem is a capacity-N fungible resource pool identified by
// SKU.  Bookings allocate quantities out of the pool; the sum of
// confirmed overlapping allocations never exceeds TotalQuantity.
//
// Fields:
//  ID            – primary key identifier.
//  SKU           – unique stock keeping unit (e.g. "racket").
//  Name          – display name.
//  TotalQuantity – size of the pool.
//  RentalFee     – default per-unit fee applied when a booking line
//                  does not carry an explicit override.
//  Active        – whether the item may be rented.
type EquipmentItem struct {
	ID            uint64  // equipment_items.id
	SKU           string  // equipment_items.sku
	Name          string  // equipment_items.name
	TotalQuantity int     // equipment_items.total_quantity
	RentalFee     float64 // equipment_items.rental_fee
	Active        bool    // equipment_items.active
}
