package scheduler

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidQuality indicates a rating outside 0..5.
var ErrInvalidQuality = errors.New("quality must be an integer between 0 and 5")

// Quality is the self-assessed recall strength of a review.
type Quality int

const (
	QualityBlackout      Quality = 0
	QualityWrong         Quality = 1
	QualityWrongFamiliar Quality = 2
	QualityHard          Quality = 3
	QualityGood          Quality = 4
	QualityPerfect       Quality = 5
)

// lapseThreshold is the lowest quality that counts as a successful recall.
const lapseThreshold = QualityHard

// Valid reports whether q is inside the rating domain.
func (q Quality) Valid() bool {
	return q >= QualityBlackout && q <= QualityPerfect
}

// IsLapse reports whether q sends the card into the learning phase.
func (q Quality) IsLapse() bool {
	return q < lapseThreshold
}

func (q Quality) String() string {
	switch q {
	case QualityBlackout:
		return "blackout"
	case QualityWrong:
		return "wrong"
	case QualityWrongFamiliar:
		return "wrong-familiar"
	case QualityHard:
		return "hard"
	case QualityGood:
		return "good"
	case QualityPerfect:
		return "perfect"
	default:
		return "quality(" + strconv.Itoa(int(q)) + ")"
	}
}

// ParseQuality parses a decimal rating.
func ParseQuality(s string) (Quality, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrInvalidQuality
	}
	q := Quality(n)
	if !q.Valid() {
		return 0, ErrInvalidQuality
	}
	return q, nil
}
