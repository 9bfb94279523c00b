package service

// TotalPrice applies a whole-percent discount to the summed prices using
// integer arithmetic: sum - sum*discount/100.
func TotalPrice(prices []int, discountPercent int) int {
	sum := 0
	for _, p := range prices {
		sum += p
	}
	return sum - sum*discountPercent/100
}
