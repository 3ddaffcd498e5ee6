package zone

// Classify returns the zone a temperature belongs to, given the zone that
// was active before the sample. zones is the effective sequence, ordered by
// ascending trip point; entries past MaxZones are ignored.
//
// A zone is entered upward once t reaches its trip point and is left
// downward only once t falls to or below its reset point. Unthrottled is
// reachable only through zone 0's reset point.
func Classify(t Temperature, prev Index, zones []Zone) Index {
	n := min(len(zones), MaxZones)
	if n == 0 {
		return Unthrottled
	}

	if t <= zones[0].Reset {
		return Unthrottled
	}

	// Not yet at the first trip point and not throttled: stay cool.
	if prev == Unthrottled && t < zones[0].Trip {
		return Unthrottled
	}

	last := n - 1
	for i := 0; i < last; i++ {
		if t <= zones[i].Reset || t >= zones[i+1].Trip {
			continue
		}

		if prev == Unthrottled {
			if t < zones[i].Trip {
				continue
			}

			return Index(i)
		}

		// Dropping below the previous zone requires having left zone i+1.
		if int(prev) > i && t > zones[i+1].Reset {
			continue
		}

		return Index(i)
	}

	return Index(last)
}
