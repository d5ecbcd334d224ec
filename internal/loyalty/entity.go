// AngelaMos | 2026
// entity.go

package loyalty

import (
	"errors"
	"fmt"
	"time"
)

const ReferralPoints = 40

var (
	ErrReferralNotFound = errors.New("referral not found")
	ErrReferralConsumed = errors.New("referral already consumed")
	ErrSelfReferral     = errors.New("cannot refer yourself")
)

type Tier string

const (
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
)

var tierThresholds = []struct {
	min  int
	tier Tier
}{
	{500, TierPlatinum},
	{250, TierGold},
	{100, TierSilver},
	{0, TierBronze},
}

// TierFor maps a point total to its tier. It is monotonic in points.
func TierFor(points int) Tier {
	for _, t := range tierThresholds {
		if points >= t.min {
			return t.tier
		}
	}
	return TierBronze
}

// Rank orders tiers; an unknown tier ranks below Bronze.
func (t Tier) Rank() int {
	for i, th := range tierThresholds {
		if th.tier == t {
			return len(tierThresholds) - i
		}
	}
	return 0
}

type Referral struct {
	ID            string    `db:"id"`
	ReferrerEmail string    `db:"referrer_email"`
	ReferredEmail string    `db:"referred_email"`
	Token         string    `db:"token"`
	CreatedAt     time.Time `db:"created_at"`
}

type Loyalty struct {
	Email         string    `db:"email"`
	LoyaltyPoints int       `db:"loyalty_points"`
	ReferredCount int       `db:"referred_count"`
	Tier          Tier      `db:"tier"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Outcome describes a credited referral.
type Outcome struct {
	ReferrerEmail string
	Points        int
	PreviousTier  Tier
	Tier          Tier
	Notifications []string
}

func tierChangeMessage(t Tier) string {
	return "Congratulations! You have been promoted to " + string(t) + " tier!"
}

func referralCreditMessage(points int) string {
	return fmt.Sprintf(
		"Congratulations, your referral has successfully signed up. "+
			"As a reward, %d points have been added to your loyalty account.",
		points,
	)
}
