package entitlements

import "github.com/trendfox/TrendFox/app/models"

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// PlanForProfile maps the billing-derived profile flag to a plan. A nil
// profile means the user never went through checkout and is on the free plan.
func PlanForProfile(p *models.Profile) Plan {
	if p != nil && p.IsPro {
		return PlanPro
	}
	return PlanFree
}

// CanViewDetail decides whether a viewer may see a post's detail fields.
// Free posts are open to everyone; paid posts require the pro flag. The
// isPro value must come from a fresh profile read, never from client claims.
func CanViewDetail(isFree, isPro bool) bool {
	return isFree || isPro
}

// RedactPost clears the detail fields of a post the viewer may not see and
// reports whether the post was locked. The input is copied; stored rows are
// never mutated.
func RedactPost(post models.Post, isPro bool) (models.Post, bool) {
	if CanViewDetail(post.IsFree, isPro) {
		return post, false
	}
	post.Why = ""
	post.HowToCopy = ""
	return post, true
}
