package categorize

import "strings"

// Categories lists the eleven tag categories in registry order. A tag
// is written "category:value" and belongs to exactly one category.
var Categories = []string{
	"niche", "focus", "body", "ass", "breasts", "age",
	"ethnicity", "style", "hair", "special", "content",
}

// tagValues holds the registry values per category, 82 tags in total.
// The registry is the contract with the classifier: anything outside
// it is discarded before a row is written.
var tagValues = map[string][]string{
	"niche":     {"amateur", "cosplay", "fitness", "gamer", "goth", "alt", "outdoor", "public", "couple", "solo"},
	"focus":     {"full_body", "face", "legs", "feet", "hands", "back", "tummy", "curves"},
	"body":      {"slim", "petite", "athletic", "average", "curvy", "thick", "bbw", "tall", "short", "muscular"},
	"ass":       {"small", "medium", "big", "round", "bubble", "pawg"},
	"breasts":   {"small", "medium", "big", "natural", "enhanced", "perky", "busty"},
	"age":       {"college", "twenties", "thirties", "mature", "milf", "gilf"},
	"ethnicity": {"white", "black", "latina", "asian", "indian", "middle_eastern", "mixed", "ebony", "european"},
	"style":     {"casual", "lingerie", "bikini", "dress", "sporty", "elegant", "street", "retro"},
	"hair":      {"blonde", "brunette", "redhead", "black", "colored", "long", "short"},
	"special":   {"tattoos", "piercings", "glasses", "freckles", "dimples", "curly"},
	"content":   {"photos", "videos", "reels", "lives", "customs"},
}

var tagCategory = func() map[string]string {
	m := make(map[string]string)
	for _, cat := range Categories {
		for _, v := range tagValues[cat] {
			m[cat+":"+v] = cat
		}
	}
	return m
}()

// AllTags returns every registry tag in category order.
func AllTags() []string {
	tags := make([]string, 0, len(tagCategory))
	for _, cat := range Categories {
		for _, v := range tagValues[cat] {
			tags = append(tags, cat+":"+v)
		}
	}
	return tags
}

// ValidTag reports registry membership. Matching is exact: the
// registry is lower case and no folding is applied.
func ValidTag(tag string) bool {
	_, ok := tagCategory[tag]
	return ok
}

// CategoryOf returns the category a registry tag belongs to.
func CategoryOf(tag string) (string, bool) {
	cat, ok := tagCategory[tag]
	return cat, ok
}

// maxTags caps how many tags a subreddit carries. One tag is the
// normal case, two when a single tag cannot cover the community.
const maxTags = 2

// ValidateTags filters classifier output down to what may be stored:
// unknown tags are dropped, duplicates collapse, and the result is
// capped at two. Order is preserved so the first tag stays first.
func ValidateTags(raw []string) []string {
	var tags []string
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if !ValidTag(t) {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

// PrimaryCategory derives the stored category from a validated tag
// set: the category of the first tag.
func PrimaryCategory(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	cat, _ := CategoryOf(tags[0])
	return cat
}
