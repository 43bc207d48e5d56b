// Package pairing implements the compatibility predicate and candidate
// ordering used by the matching engine.
package pairing

import (
	"math"
	"time"

	"github.com/emberlink/ember/internal/domain/model"
)

const earthRadiusKM = 6371.0

// CommonAnswers counts identical (question, option) pairs between two
// submissions.
func CommonAnswers(a, b []model.Answer) int {
	byQuestion := make(map[string]string, len(a))
	for _, ans := range a {
		byQuestion[ans.QuestionID] = ans.OptionID
	}

	common := 0
	for _, ans := range b {
		if opt, ok := byQuestion[ans.QuestionID]; ok && opt == ans.OptionID {
			common++
		}
	}
	return common
}

// accepts reports whether the filters of one side accept the counterpart's
// profile. Zero-valued bounds are treated as open.
func accepts(f model.FilterSnapshot, self, other model.ProfileSnapshot) bool {
	if f.Gender != "" && f.Gender != "any" && f.Gender != other.Gender {
		return false
	}
	if f.MinAge > 0 && other.Age < f.MinAge {
		return false
	}
	if f.MaxAge > 0 && other.Age > f.MaxAge {
		return false
	}
	if f.MaxDistanceKM > 0 {
		if DistanceKM(self.Lat, self.Lon, other.Lat, other.Lon) > float64(f.MaxDistanceKM) {
			return false
		}
	}
	return true
}

// MutualFilters reports whether both entries accept each other.
func MutualFilters(a, b *model.QueueEntry) bool {
	return accepts(a.Filters, a.Profile, b.Profile) &&
		accepts(b.Filters, b.Profile, a.Profile)
}

// Compatible evaluates the pairing predicate between two queue entries.
// It returns the common-answer count and whether the pair may be
// committed. Session-membership and block checks belong to the engine;
// this predicate covers filters and answer overlap only.
func Compatible(a, b *model.QueueEntry) (int, bool) {
	if a.UserID == b.UserID {
		return 0, false
	}
	if !MutualFilters(a, b) {
		return 0, false
	}

	required := a.MinCommon
	if b.MinCommon > required {
		required = b.MinCommon
	}
	common := CommonAnswers(a.Answers, b.Answers)
	return common, common >= required
}

// Better reports whether candidate x beats candidate y for the same
// seeker: higher common-answer count wins, ties go to the earlier
// enqueued entry.
func Better(xCommon int, x *model.QueueEntry, yCommon int, y *model.QueueEntry) bool {
	if xCommon != yCommon {
		return xCommon > yCommon
	}
	return x.EnqueuedAt.Before(y.EnqueuedAt)
}

// ScanOrder sorts pool entries for evaluation: boosted entries first,
// FIFO within each tier.
func ScanOrder(entries []*model.QueueEntry, now time.Time) []*model.QueueEntry {
	ordered := make([]*model.QueueEntry, 0, len(entries))
	ordered = append(ordered, entries...)

	// Insertion sort keeps this dependency-free; pools are small relative
	// to the per-enqueue evaluation cost.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && before(ordered[j], ordered[j-1], now); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	return ordered
}

func before(a, b *model.QueueEntry, now time.Time) bool {
	ab, bb := a.Boosted(now), b.Boosted(now)
	if ab != bb {
		return ab
	}
	return a.EnqueuedAt.Before(b.EnqueuedAt)
}

// DistanceKM computes the great-circle distance between two coordinates.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
