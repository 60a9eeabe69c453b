package classify

import (
	"strings"

	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/reference"
	"github.com/sells-group/partner-cli/internal/textnorm"
)

// Rule names, in evaluation order.
const (
	RuleKnownOverride = "known_override"
	RuleSticky        = "sticky"
	RuleRescueSticky  = "rescue_sticky"
	RuleChamber       = "chamber"
	RuleRescue        = "rescue"
	RuleGroomer       = "groomer"
	RuleDaycare       = "daycare_boarding"
	RuleRetail        = "pet_retail"
	RuleMedia         = "media"
	RuleEntertainment = "entertainment"
	RuleCharity       = "charity"
	RuleMerch         = "merch"
	RuleGraphics      = "designers_graphics"
	RuleFood          = "food_beverage"
	RuleTrainer       = "trainer"
	RuleInfluencer    = "influencer"
	RuleMultiService  = "multi_service"
	RuleBrand         = "product_brand"
	RuleLifestyle     = "lifestyle_retail"
	RuleRefineGeneric = "refine_pet_business"
	RuleFallback      = "fallback"
)

// Curated categories are not relitigated, apart from known mis-filings.
var stickyCategories = []model.Category{
	model.CategoryExoticShop,
	model.CategoryFoodVendor,
	model.CategoryPrintVendor,
	model.CategoryChamber,
}

var (
	chamberKeywords     = []string{"chamber of commerce", "chamber"}
	associationKeywords = []string{"association", "alliance"}
	rescueKeywords      = []string{
		"rescue", "shelter", "adoption center", "adoption centre", "foundation",
		"sanctuary", "spay", "neuter", "fixnation", "fix nation",
	}
	// "foundation" is shared by rescues and pure charities.
	charityFoundations = []string{"labelle", "hit living", "deleon"}
	groomerKeywords    = []string{
		"groom", "pet spa", "pet salon", "mobile pet", "dog spa", "pet wash", "barkin", "salon",
	}
	daycareKeywords = []string{
		"daycare", "day care", "boarding", "kennel", "dog camp", "club", "lodge", "resort", "hotel", "bnb",
	}
	retailKeywords = []string{
		"pet supply", "pet supplies", "pet food", "feed", "pet shop", "petco", "petsmart", "boutique",
	}
	mediaKeywords = []string{
		"news", "daily press", "current", "media", "magazine", "blog", "podcast", "studio",
		"tv", "press", "insider pass", "u cast",
	}
	entertainmentKeywords = []string{
		"dj", "entertainment", "music", "photo booth", "paparazzi", "animation", "party",
	}
	charityKeywords  = []string{"charity", "heritage museum", "donation", "giving", "mutternity"}
	merchKeywords    = []string{"merch", "apparel", "tshirt", "swag"}
	graphicsKeywords = []string{"graphic", "design", "sign", "signs"}
	foodKeywords     = []string{
		"coffee", "brewery", "beer", "tequila", "taco", "pizza", "food", "catering",
		"tavern", "bar ", "saloon", "drink", "water", "juice", "shine",
	}
	trainerKeywords    = []string{"trainer", "training", "academy", "fitness"}
	influencerKeywords = []string{"dog gang", "dog ppl", "dog yoyo", "saturday dog"}
	brandKeywords      = []string{
		"fresh patch", "happybond", "healthy paws", "kindybites", "zen fren", "mossimo",
		"buddy:", "poshpetcare", "cleo", "modern beast", "orange bone", "dog bakery", "fluffology",
	}
	lifestyleKeywords = []string{"surf", "bike shop"}
)

func defaultRules(tables *reference.Tables) []rule {
	return []rule{
		{Name: RuleKnownOverride, Match: knownOverride(tables)},
		{Name: RuleSticky, Match: sticky},
		{Name: RuleRescueSticky, Match: func(t text) (model.Category, bool) {
			return model.CategoryRescue, t.current == model.CategoryRescue
		}},
		{Name: RuleChamber, Match: func(t text) (model.Category, bool) {
			// Associations and alliances fold into the chamber bucket.
			return model.CategoryChamber, has(t.name, chamberKeywords...) || has(t.name, associationKeywords...)
		}},
		{Name: RuleRescue, Match: rescue},
		{Name: RuleGroomer, Match: groomer},
		{Name: RuleDaycare, Match: daycare},
		{Name: RuleRetail, Match: retail},
		{Name: RuleMedia, Match: nameHas(model.CategoryMedia, mediaKeywords)},
		{Name: RuleEntertainment, Match: nameHas(model.CategoryEntertainment, entertainmentKeywords)},
		{Name: RuleCharity, Match: func(t text) (model.Category, bool) {
			return model.CategoryCharity, has(t.name, charityKeywords...) ||
				strings.Contains(t.notes, "donation") ||
				strings.Contains(t.name, "silent auction")
		}},
		{Name: RuleMerch, Match: func(t text) (model.Category, bool) {
			return model.CategoryMerchVendor, has(t.name, merchKeywords...) ||
				has(t.services, "sweaters", "leather")
		}},
		{Name: RuleGraphics, Match: func(t text) (model.Category, bool) {
			return model.CategoryDesignersGraphics, has(t.name, graphicsKeywords...) ||
				strings.Contains(t.services, "sign repair")
		}},
		{Name: RuleFood, Match: nameHas(model.CategoryFoodVendor, foodKeywords)},
		{Name: RuleTrainer, Match: func(t text) (model.Category, bool) {
			return model.CategoryPetBusiness, has(t.name, trainerKeywords...) || t.services == "trainer"
		}},
		{Name: RuleInfluencer, Match: nameHas(model.CategoryMedia, influencerKeywords)},
		{Name: RuleMultiService, Match: func(t text) (model.Category, bool) {
			return model.CategoryPetBusiness, strings.Contains(t.services, "groomer") &&
				has(t.services, "retail", "daycare")
		}},
		{Name: RuleBrand, Match: nameHas(model.CategoryPetRetail, brandKeywords)},
		{Name: RuleLifestyle, Match: nameHas(model.CategoryPetRetail, lifestyleKeywords)},
		{Name: RuleRefineGeneric, Match: refineGeneric},
	}
}

func has(s string, keywords ...string) bool {
	return textnorm.ContainsAny(s, keywords...)
}

func nameHas(cat model.Category, keywords []string) func(text) (model.Category, bool) {
	return func(t text) (model.Category, bool) {
		return cat, has(t.name, keywords...)
	}
}

func knownOverride(tables *reference.Tables) func(text) (model.Category, bool) {
	return func(t text) (model.Category, bool) {
		b, ok := tables.Lookup(t.name)
		if !ok || b.Category == "" {
			return "", false
		}
		return b.Category, true
	}
}

func sticky(t text) (model.Category, bool) {
	isSticky := false
	for _, c := range stickyCategories {
		if t.current == c {
			isSticky = true
			break
		}
	}
	if !isSticky {
		if ex, ok := printVendorException(t.name); ok && ex == t.current {
			return ex, true
		}
		return "", false
	}
	if ex, ok := printVendorException(t.name); ok && t.current == model.CategoryPrintVendor {
		return ex, true
	}
	return t.current, true
}

// printVendorExceptions move a print vendor to a closer-fitting category.
// The target is kept on later runs so the move is not undone.
var printVendorExceptions = []struct {
	keywords []string
	category model.Category
}{
	{[]string{"embroidery", "prints & threads"}, model.CategoryMerchVendor},
	{[]string{"av graphics"}, model.CategoryDesignersGraphics},
	{[]string{"venice insider pass"}, model.CategoryMedia},
}

func printVendorException(name string) (model.Category, bool) {
	for _, ex := range printVendorExceptions {
		if has(name, ex.keywords...) {
			return ex.category, true
		}
	}
	return "", false
}

func rescue(t text) (model.Category, bool) {
	if has(t.name, rescueKeywords...) {
		if has(t.name, charityFoundations...) {
			return model.CategoryCharity, true
		}
		return model.CategoryRescue, true
	}
	return model.CategoryRescue, has(t.services, "dog shelter/rescue", "rescue partner")
}

func groomer(t text) (model.Category, bool) {
	if has(t.name, groomerKeywords...) {
		// Compound-service names default to the boarding side.
		if has(t.name, "daycare", "boarding") {
			return model.CategoryDaycareBoarding, true
		}
		return model.CategoryGroomer, true
	}
	if t.services == "groomer" {
		return model.CategoryGroomer, true
	}
	if strings.HasPrefix(t.services, "groomer") && !has(t.services, "daycare", "retail") {
		return model.CategoryGroomer, true
	}
	return "", false
}

func daycare(t text) (model.Category, bool) {
	if has(t.name, daycareKeywords...) {
		return model.CategoryDaycareBoarding, true
	}
	if t.services == "hotel" || strings.Contains(t.services, "daycare") {
		return model.CategoryDaycareBoarding, true
	}
	return "", false
}

func retail(t text) (model.Category, bool) {
	if has(t.name, retailKeywords...) {
		return model.CategoryPetRetail, true
	}
	if strings.HasPrefix(t.services, "retail") && !strings.Contains(t.services, "groom") {
		return model.CategoryPetRetail, true
	}
	return "", false
}

func refineGeneric(t text) (model.Category, bool) {
	if t.current != model.CategoryPetBusiness {
		return "", false
	}
	switch {
	case strings.Contains(t.services, "groom"):
		return model.CategoryGroomer, true
	case strings.Contains(t.services, "retail"):
		return model.CategoryPetRetail, true
	case has(t.services, "daycare", "hotel"):
		return model.CategoryDaycareBoarding, true
	}
	return model.CategoryPetBusiness, true
}
