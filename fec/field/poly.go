package field

// Poly is a polynomial over a GF with coefficients ordered from the highest
// degree to the lowest. The zero polynomial is Poly{0} (or empty).
type Poly []Symbol

// Monomial returns c*x^degree.
func Monomial(degree int, c Symbol) Poly {
	if c == 0 {
		return Poly{0}
	}
	p := make(Poly, degree+1)
	p[0] = c
	return p
}

// Trim drops leading zero coefficients, keeping at least one coefficient.
func (p Poly) Trim() Poly {
	i := 0
	for i < len(p)-1 && p[i] == 0 {
		i++
	}
	if len(p) == 0 {
		return Poly{0}
	}
	return p[i:]
}

// IsZero reports whether every coefficient is zero.
func (p Poly) IsZero() bool {
	for _, c := range p {
		if c != 0 {
			return false
		}
	}
	return true
}

// Degree returns the degree of p, or -1 for the zero polynomial.
func (p Poly) Degree() int {
	for i, c := range p {
		if c != 0 {
			return len(p) - 1 - i
		}
	}
	return -1
}

// Coefficient returns the coefficient of x^degree.
func (p Poly) Coefficient(degree int) Symbol {
	i := len(p) - 1 - degree
	if degree < 0 || i < 0 {
		return 0
	}
	return p[i]
}

// ShiftPoly multiplies p by x^k.
func ShiftPoly(p Poly, k int) Poly {
	out := make(Poly, len(p)+k)
	copy(out, p)
	return out
}

// AddPoly returns a + b.
func (f *GF) AddPoly(a, b Poly) Poly {
	if len(a) < len(b) {
		a, b = b, a
	}
	out := make(Poly, len(a))
	copy(out, a)
	off := len(a) - len(b)
	for i, c := range b {
		out[off+i] = f.Add(out[off+i], c)
	}
	return out.Trim()
}

// SubPoly returns a - b.
func (f *GF) SubPoly(a, b Poly) Poly {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(Poly, n)
	copy(out[n-len(a):], a)
	off := n - len(b)
	for i, c := range b {
		out[off+i] = f.Sub(out[off+i], c)
	}
	return out.Trim()
}

// ScalePoly returns c*p.
func (f *GF) ScalePoly(p Poly, c Symbol) Poly {
	out := make(Poly, len(p))
	for i, a := range p {
		out[i] = f.Mul(a, c)
	}
	return out.Trim()
}

// MulPoly returns a * b.
func (f *GF) MulPoly(a, b Poly) Poly {
	if len(a) == 0 || len(b) == 0 {
		return Poly{0}
	}
	out := make(Poly, len(a)+len(b)-1)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			out[i+j] = f.Add(out[i+j], f.Mul(x, y))
		}
	}
	return out.Trim()
}

// DivModPoly divides a by b, returning quotient and remainder with
// a = quotient*b + remainder and deg(remainder) < deg(b).
func (f *GF) DivModPoly(a, b Poly) (Poly, Poly, error) {
	b = b.Trim()
	if b.IsZero() {
		return nil, nil, ErrDivisionByZero
	}
	a = a.Trim()
	if len(a) < len(b) {
		return Poly{0}, append(Poly(nil), a...), nil
	}

	leadInv, err := f.Inv(b[0])
	if err != nil {
		return nil, nil, err
	}
	rem := append(Poly(nil), a...)
	steps := len(a) - len(b) + 1
	quot := make(Poly, steps)
	for i := 0; i < steps; i++ {
		c := rem[i]
		if c == 0 {
			continue
		}
		factor := f.Mul(c, leadInv)
		quot[i] = factor
		for j, d := range b {
			rem[i+j] = f.Sub(rem[i+j], f.Mul(factor, d))
		}
	}
	return quot.Trim(), rem[steps:].Trim(), nil
}

// EvalPoly evaluates p at x using Horner's rule.
func (f *GF) EvalPoly(p Poly, x Symbol) Symbol {
	var r Symbol
	for _, c := range p {
		r = f.Add(f.Mul(r, x), c)
	}
	return r
}
