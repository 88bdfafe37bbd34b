package play

// Advance derives the next play's defaults from the play that just completed.
// last is the most recent non-kicking possession; the returned symbol replaces it.
// The order of the steps matters: the flag is cleared before the scoring check,
// and the scoring check runs before any gain is computed.
func Advance(cur Play, last ODK) (Play, ODK) {
	next := cur
	next.Flagged = false

	// Touchdown: the next snap is a kickoff from our own 5.
	if cur.ODK != Kicking && cur.EndLine == 0 {
		next.ODK = Kicking
		next.Down = 0
		next.StartLine = KickoffLine
		return next, last
	}

	gain := cur.Gain()
	if last != Offense {
		gain = -gain
	}

	if gain < cur.Distance {
		if cur.Down == MaxDown {
			// Turnover on downs.
			next.ODK = cur.ODK.Opposite()
			next.Down = 1
			next.Distance = FirstDownDistance
		} else {
			next.Down = cur.Down + 1
			next.Distance = cur.Distance - gain
		}
	} else {
		next.Down = 1
		next.Distance = FirstDownDistance
	}

	end := cur.EndLine
	if next.ODK == Kicking {
		next.ODK = last.Opposite()
		next.Down = 1
		next.Distance = FirstDownDistance
		end = -end
	}

	if next.ODK != last {
		next.Series = cur.Series + 1
	}
	if next.ODK != Kicking {
		last = next.ODK
	}

	next.StartLine = end
	next.EndLine = end
	if next.StartLine > 0 && next.Distance > next.StartLine {
		next.Distance = next.StartLine
	}
	return next, last
}
