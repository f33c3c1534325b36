//go:build !race

package authd

func passwordHashCost() int {
	return 14
}
