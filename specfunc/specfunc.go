//
// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package specfunc implements the digamma and trigamma functions used as
// closed-form derivatives by the population uniqueness models.
//
// Both functions are pure and deterministic. They combine reflection for
// negative arguments, a Taylor expansion near zero, upward recurrence and an
// asymptotic expansion in terms of Bernoulli numbers.
package specfunc

import "math"

const (
	// eulerMascheroni is γ = -ψ(1).
	eulerMascheroni = 0.57721566490153286060651209008240243104215933593992
	// zeta3 is Apéry's constant ζ(3).
	zeta3 = 1.20205690315959428539973816151144999076498629234049

	// Arguments at or above these thresholds are evaluated with the
	// asymptotic expansion; smaller ones are shifted up by recurrence.
	digammaLargeThreshold  = 12
	trigammaLargeThreshold = 8

	// Arguments in (0, smallThreshold] are evaluated with a Taylor expansion
	// around zero.
	digammaSmallThreshold  = 1e-6
	trigammaSmallThreshold = 1e-4
)

// Digamma returns ψ(x) = d/dx ln Γ(x).
//
// Special cases are:
//
//	Digamma(+Inf) = +Inf
//	Digamma(0) = NaN
//	Digamma(x) = NaN for negative integers x
//	Digamma(-Inf) = NaN
//	Digamma(NaN) = NaN
func Digamma(x float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsInf(x, -1):
		return math.NaN()
	case math.IsInf(x, 1):
		return x
	case x == 0:
		return math.NaN()
	case x < 0:
		if x == math.Floor(x) {
			return math.NaN()
		}
		// ψ(x) = ψ(1-x) - π·cot(πx) = ψ(1-x) + π·cot(-πx)
		return Digamma(1-x) + math.Pi/math.Tan(-math.Pi*x)
	case x <= digammaSmallThreshold:
		// ψ(x) = -1/x - γ + ζ(2)·x + O(x²)
		return -1/x - eulerMascheroni + math.Pi*math.Pi/6*x
	}

	var result float64
	for x < digammaLargeThreshold {
		result -= 1 / x
		x++
	}
	// ψ(x) ~ ln x - 1/(2x) - Σ B₂ₖ/(2k·x²ᵏ)
	inv := 1 / x
	inv2 := inv * inv
	series := inv2 * (1.0/12 -
		inv2*(1.0/120-
			inv2*(1.0/252-
				inv2*(1.0/240-
					inv2*(1.0/132)))))
	return result + math.Log(x) - 0.5*inv - series
}

// Trigamma returns ψ₁(x) = d²/dx² ln Γ(x).
//
// Special cases are:
//
//	Trigamma(+Inf) = 0
//	Trigamma(0) = NaN
//	Trigamma(x) = NaN for negative integers x
//	Trigamma(-Inf) = NaN
//	Trigamma(NaN) = NaN
func Trigamma(x float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsInf(x, -1):
		return math.NaN()
	case math.IsInf(x, 1):
		return 0
	case x == 0:
		return math.NaN()
	case x < 0:
		if x == math.Floor(x) {
			return math.NaN()
		}
		// ψ₁(1-x) + ψ₁(x) = π²/sin²(πx)
		s := math.Sin(math.Pi * x)
		return -Trigamma(1-x) + math.Pi*math.Pi/(s*s)
	case x <= trigammaSmallThreshold:
		// ψ₁(x) = 1/x² + ζ(2) - 2ζ(3)·x + O(x²)
		return 1/(x*x) + math.Pi*math.Pi/6 - 2*zeta3*x
	}

	var result float64
	for x < trigammaLargeThreshold {
		result += 1 / (x * x)
		x++
	}
	// ψ₁(x) ~ 1/x + 1/(2x²) + Σ B₂ₖ/x²ᵏ⁺¹
	inv := 1 / x
	inv2 := inv * inv
	series := inv * inv2 * (1.0/6 -
		inv2*(1.0/30-
			inv2*(1.0/42-
				inv2*(1.0/30-
					inv2*(5.0/66)))))
	return result + inv + 0.5*inv2 + series
}
