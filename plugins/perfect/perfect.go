// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

// Package perfect bundles a panel for checking multiperfect numbers.
package perfect

// divisorSum returns sigma(n), the sum of all positive divisors of n
// including n itself. Divisors are enumerated in pairs up to sqrt(n).
func divisorSum(n uint64) uint64 {
	if n == 0 {
		return 0
	}

	var sum uint64
	for d := uint64(1); d*d <= n; d++ {
		if n%d != 0 {
			continue
		}
		sum += d
		if pair := n / d; pair != d {
			sum += pair
		}
	}
	return sum
}

// Classify returns k when n is k-perfect, meaning sigma(n) equals k*n.
// Ordinary perfect numbers classify as 2. Numbers that are not
// multiperfect classify as 0.
func Classify(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	sum := divisorSum(n)
	if sum%n != 0 {
		return 0
	}
	return sum / n
}
