package zone

import "codeberg.org/mutker/thermalctl/internal/errors"

// Misordering describes one ordering problem in a zone sequence.
type Misordering struct {
	Index  int
	Reason string
}

// Misorderings lists zones whose reset point is not below their trip point
// and trip points that do not strictly increase.
func Misorderings(zones []Zone) []Misordering {
	var out []Misordering
	for i, z := range zones {
		if z.Reset >= z.Trip {
			out = append(out, Misordering{
				Index:  i,
				Reason: "reset " + z.Reset.String() + " is not below trip " + z.Trip.String(),
			})
		}

		if i+1 < len(zones) && zones[i+1].Trip <= z.Trip {
			out = append(out, Misordering{
				Index:  i + 1,
				Reason: "trip " + zones[i+1].Trip.String() + " does not exceed previous trip " + z.Trip.String(),
			})
		}
	}

	return out
}

// Validate reports every misordering as ErrMisordered. Misordered tables
// are not rejected on write; classification over them may leave zones
// unreachable.
func Validate(zones []Zone) error {
	errFactory := errors.New()

	var errs []error
	for _, m := range Misorderings(zones) {
		errs = append(errs, errFactory.WithData(ErrMisordered, m))
	}

	return errors.Join(errs...)
}
