package catalog

import "github.com/shopspring/decimal"

// SampleProducts is a small fixed assortment for offline use.
func SampleProducts() []Product {
	return []Product{
		{ID: "101", Name: "iPhone 13 128GB Blue", Category: "smartphones", Brand: "Apple", Price: decimal.NewFromInt(27999), Rating: 4.6, InStock: true, Stock: 12, Availability: "In Stock", Description: "6.1-inch display, A15 Bionic, dual camera."},
		{ID: "102", Name: "iPhone 15 Pro 256GB", Category: "smartphones", Brand: "Apple", Price: decimal.NewFromInt(129900), Rating: 4.8, InStock: true, Stock: 4, Availability: "Low Stock", Description: "Titanium frame, A17 Pro, 5x telephoto."},
		{ID: "103", Name: "Galaxy S23 128GB", Category: "smartphones", Brand: "Samsung", Price: decimal.NewFromInt(24999), Rating: 4.5, InStock: true, Stock: 20, Availability: "In Stock", Description: "Snapdragon 8 Gen 2, 50MP camera."},
		{ID: "104", Name: "Pixel 8 128GB", Category: "smartphones", Brand: "Google", Price: decimal.NewFromInt(52999), Rating: 4.4, InStock: true, Stock: 7, Availability: "In Stock", Description: "Tensor G3, seven years of updates."},
		{ID: "201", Name: "Nike Air Max 270", Category: "mens-shoes", Brand: "Nike", Price: decimal.RequireFromString("4599.50"), Rating: 4.3, InStock: true, Stock: 30, Availability: "In Stock", Description: "Cushioned everyday sneaker."},
		{ID: "202", Name: "Adidas Ultraboost 22", Category: "mens-shoes", Brand: "Adidas", Price: decimal.NewFromInt(8999), Rating: 4.2, InStock: false, Stock: 0, Availability: "Out of Stock", Description: "Responsive running shoe."},
		{ID: "301", Name: "Sony WH-1000XM5", Category: "headphones", Brand: "Sony", Price: decimal.NewFromInt(26990), Rating: 4.7, InStock: true, Stock: 9, Availability: "In Stock", Description: "Noise cancelling over-ear headphones."},
		{ID: "401", Name: "MacBook Air M2", Category: "laptops", Brand: "Apple", Price: decimal.NewFromInt(99900), Rating: 4.7, InStock: true, Stock: 5, Availability: "In Stock", Description: "13.6-inch Liquid Retina, 8-core CPU."},
	}
}
