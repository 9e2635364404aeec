package datatype

import "math/big"

var one = big.NewInt(1)

// Span is a sorted list of disjoint integer intervals. Nil bounds are open
// as in Range.
type Span []Range

// Integers is the span of every integer.
func Integers() Span { return Span{{}} }

// Empty reports whether no integer is left.
func (s Span) Empty() bool { return len(s) == 0 }

// Intersect keeps the integers of s that lie in r.
func (s Span) Intersect(r Range) Span {
	var out Span
	for _, iv := range s {
		x := Range{Min: maxBound(iv.Min, r.Min), Max: minBound(iv.Max, r.Max)}
		if !x.EmptyValueSpace() {
			out = append(out, x)
		}
	}
	return out
}

// Minus removes the integers of r from s.
func (s Span) Minus(r Range) Span {
	if r.EmptyValueSpace() {
		return s
	}
	var out Span
	for _, iv := range s {
		if r.Min != nil {
			below := Range{Min: iv.Min, Max: minBound(iv.Max, new(big.Int).Sub(r.Min, one))}
			if !below.EmptyValueSpace() {
				out = append(out, below)
			}
		}
		if r.Max != nil {
			above := Range{Min: maxBound(iv.Min, new(big.Int).Add(r.Max, one)), Max: iv.Max}
			if !above.EmptyValueSpace() {
				out = append(out, above)
			}
		}
	}
	return out
}

// Without removes the single integer v.
func (s Span) Without(v *big.Int) Span {
	return s.Minus(Range{Min: v, Max: v})
}

// IntegerIntervals returns intervals whose union is the set of integers in
// e. The intervals may overlap. It reports false for expressions whose
// integers it cannot describe.
func IntegerIntervals(e Expr) ([]Range, bool) {
	switch t := e.(type) {
	case *Basic:
		if t.subsumes(basics[Integer]) {
			return []Range{{}}, true
		}
		return nil, true
	case *Range:
		if t.EmptyValueSpace() {
			return nil, true
		}
		return []Range{*t}, true
	case *Union:
		host, ok := IntegerIntervals(t.host)
		if !ok {
			return nil, false
		}
		var out []Range
		for _, m := range t.members {
			ms, ok := IntegerIntervals(m)
			if !ok {
				return nil, false
			}
			for _, h := range host {
				for _, x := range ms {
					iv := Range{Min: maxBound(h.Min, x.Min), Max: minBound(h.Max, x.Max)}
					if !iv.EmptyValueSpace() {
						out = append(out, iv)
					}
				}
			}
		}
		return out, true
	}
	return nil, false
}

// IntegerValue returns the integer l denotes, if any.
func IntegerValue(l Literal) (*big.Int, bool) {
	if !basics[Integer].IsCompatibleLiteral(l) {
		return nil, false
	}
	return parseInteger(l.Value)
}
