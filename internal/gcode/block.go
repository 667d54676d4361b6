package gcode

import "fluidnc/internal/errs"

// block is the classified form of one line: the modal G/M words it
// names, its axis words, and the remaining parameter letters, with every
// one-per-group/one-per-letter conflict already checked.
type block struct {
	gWords []float64
	mWords []float64

	axis    [9]float64
	hasAxis [9]bool

	letters map[byte]float64
	hasLet  map[byte]bool
}

func classify(words []word) (block, error) {
	b := block{letters: map[byte]float64{}, hasLet: map[byte]bool{}}
	groupSeen := map[ModalGroup]bool{}
	mCatSeen := map[string]bool{}

	for _, w := range words {
		switch w.Letter {
		case 'G':
			grp, _, err := classifyG(w.Value)
			if err != nil {
				return block{}, err
			}
			if groupSeen[grp] {
				return block{}, errs.New(errs.GcodeModalGroupViolation)
			}
			groupSeen[grp] = true
			b.gWords = append(b.gWords, w.Value)
			continue
		case 'M':
			cat, err := classifyM(w.Value)
			if err != nil {
				return block{}, err
			}
			if cat != "coolantOn" && mCatSeen[cat] {
				return block{}, errs.New(errs.GcodeModalGroupViolation)
			}
			if mCatSeen["m:"+itoa(int(w.Value))] {
				return block{}, errs.New(errs.GcodeWordRepeated)
			}
			mCatSeen[cat] = true
			mCatSeen["m:"+itoa(int(w.Value))] = true
			b.mWords = append(b.mWords, w.Value)
			continue
		}
		if idx, ok := axisIndex(w.Letter); ok {
			if b.hasAxis[idx] {
				return block{}, errs.New(errs.GcodeWordRepeated)
			}
			b.axis[idx] = w.Value
			b.hasAxis[idx] = true
			continue
		}
		if b.hasLet[w.Letter] {
			return block{}, errs.New(errs.GcodeWordRepeated)
		}
		b.letters[w.Letter] = w.Value
		b.hasLet[w.Letter] = true
	}
	return b, nil
}

func (b block) hasAnyAxis() bool {
	for _, v := range b.hasAxis {
		if v {
			return true
		}
	}
	return false
}

// classifyG maps a G word's number to its modal group. G-codes with a fractional suffix (G59.1, G38.2,
// ...) are distinct members of their group, not separate groups.
func classifyG(num float64) (ModalGroup, string, error) {
	switch num {
	case 0:
		return GroupMotion, "G0", nil
	case 1:
		return GroupMotion, "G1", nil
	case 2:
		return GroupMotion, "G2", nil
	case 3:
		return GroupMotion, "G3", nil
	case 38.2:
		return GroupMotion, "G38.2", nil
	case 38.3:
		return GroupMotion, "G38.3", nil
	case 38.4:
		return GroupMotion, "G38.4", nil
	case 38.5:
		return GroupMotion, "G38.5", nil
	case 80:
		return GroupMotion, "G80", nil
	case 4:
		return GroupNonModal, "G4", nil
	case 10:
		return GroupNonModal, "G10", nil
	case 28:
		return GroupNonModal, "G28", nil
	case 28.1:
		return GroupNonModal, "G28.1", nil
	case 30:
		return GroupNonModal, "G30", nil
	case 30.1:
		return GroupNonModal, "G30.1", nil
	case 53:
		return GroupNonModal, "G53", nil
	case 92:
		return GroupNonModal, "G92", nil
	case 92.1:
		return GroupNonModal, "G92.1", nil
	case 17:
		return GroupPlane, "G17", nil
	case 18:
		return GroupPlane, "G18", nil
	case 19:
		return GroupPlane, "G19", nil
	case 20:
		return GroupUnits, "G20", nil
	case 21:
		return GroupUnits, "G21", nil
	case 40:
		return GroupCutterComp, "G40", nil
	case 43.1:
		return GroupTLOMode, "G43.1", nil
	case 49:
		return GroupTLOMode, "G49", nil
	case 54:
		return GroupCoordSystem, "G54", nil
	case 55:
		return GroupCoordSystem, "G55", nil
	case 56:
		return GroupCoordSystem, "G56", nil
	case 57:
		return GroupCoordSystem, "G57", nil
	case 58:
		return GroupCoordSystem, "G58", nil
	case 59:
		return GroupCoordSystem, "G59", nil
	case 59.1:
		return GroupCoordSystem, "G59.1", nil
	case 59.2:
		return GroupCoordSystem, "G59.2", nil
	case 59.3:
		return GroupCoordSystem, "G59.3", nil
	case 90:
		return GroupDistance, "G90", nil
	case 91:
		return GroupDistance, "G91", nil
	case 90.1:
		return GroupArcDistance, "G90.1", nil
	case 91.1:
		return GroupArcDistance, "G91.1", nil
	case 93:
		return GroupFeedRateMode, "G93", nil
	case 94:
		return GroupFeedRateMode, "G94", nil
	}
	return 0, "", errs.New(errs.GcodeUnsupportedCommand)
}

// classifyM buckets an M word into a loose conflict category: at most
// one word per category per block, except coolantOn (M7 and M8 may
// coexist,).
func classifyM(num float64) (string, error) {
	switch num {
	case 0, 1, 2, 30:
		return "stop", nil
	case 3, 4, 5:
		return "spindle", nil
	case 6:
		return "toolchange", nil
	case 7, 8:
		return "coolantOn", nil
	case 9:
		return "coolantOff", nil
	}
	return "", errs.New(errs.GcodeUnsupportedCommand)
}
