package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/reference"
)

func testTables(t *testing.T) *reference.Tables {
	t.Helper()
	tables, err := reference.Parse([]byte(`
zones:
  - name: "Westside & Coastal"
    neighborhoods: ["santa monica"]
businesses:
  - name: "Bowie Barker"
    category: "media"
  - name: "Lucky Duck"
    category: "food_vendor"
  - name: "Petco"
    website: "https://www.petco.com"
`))
	require.NoError(t, err)
	return tables
}

func TestClassify_Rules(t *testing.T) {
	c := New(testTables(t))

	tests := []struct {
		name string
		in   Input
		want model.Category
		rule string
	}{
		// known override
		{"override beats keywords", Input{Name: "Bowie Barker"}, model.CategoryMedia, RuleKnownOverride},
		{"override beats sticky", Input{Name: "lucky duck", Current: model.CategoryChamber}, model.CategoryFoodVendor, RuleKnownOverride},
		{"known without category falls through", Input{Name: "Petco"}, model.CategoryPetRetail, RuleRetail},

		// sticky
		{"sticky food vendor keeps rescue name", Input{Name: "Rescue Tacos", Current: model.CategoryFoodVendor}, model.CategoryFoodVendor, RuleSticky},
		{"sticky exotic", Input{Name: "Exotic Pet World", Current: model.CategoryExoticShop}, model.CategoryExoticShop, RuleSticky},
		{"sticky chamber", Input{Name: "Pizza Night", Current: model.CategoryChamber}, model.CategoryChamber, RuleSticky},
		{"print vendor embroidery", Input{Name: "Embroidery Station", Current: model.CategoryPrintVendor}, model.CategoryMerchVendor, RuleSticky},
		{"print vendor prints & threads", Input{Name: "Prints & Threads", Current: model.CategoryPrintVendor}, model.CategoryMerchVendor, RuleSticky},
		{"print vendor graphics", Input{Name: "AV Graphics", Current: model.CategoryPrintVendor}, model.CategoryDesignersGraphics, RuleSticky},
		{"print vendor insider pass", Input{Name: "Venice Insider Pass", Current: model.CategoryPrintVendor}, model.CategoryMedia, RuleSticky},
		{"print vendor stays", Input{Name: "Copy Hub", Current: model.CategoryPrintVendor}, model.CategoryPrintVendor, RuleSticky},
		{"exceptions only for print vendors", Input{Name: "Embroidery Station", Current: model.CategoryFoodVendor}, model.CategoryFoodVendor, RuleSticky},

		// rescue sticky
		{"rescue stays rescue", Input{Name: "Doggie Daycare", Current: model.CategoryRescue}, model.CategoryRescue, RuleRescueSticky},

		// chamber
		{"chamber of commerce", Input{Name: "Westside Chamber of Commerce"}, model.CategoryChamber, RuleChamber},
		{"chamber beats media and food", Input{Name: "Pizza News Chamber"}, model.CategoryChamber, RuleChamber},
		{"association folds into chamber", Input{Name: "Main Street Business Association"}, model.CategoryChamber, RuleChamber},
		{"alliance folds into chamber", Input{Name: "Stray Cat Alliance"}, model.CategoryChamber, RuleChamber},

		// rescue
		{"rescue keyword", Input{Name: "Santa Monica Pet Rescue"}, model.CategoryRescue, RuleRescue},
		{"foundation", Input{Name: "Lange Foundation"}, model.CategoryRescue, RuleRescue},
		{"spay neuter", Input{Name: "FixNation"}, model.CategoryRescue, RuleRescue},
		{"labelle carve-out", Input{Name: "The Labelle Foundation"}, model.CategoryCharity, RuleRescue},
		{"hit living carve-out", Input{Name: "Hit Living Foundation"}, model.CategoryCharity, RuleRescue},
		{"deleon carve-out", Input{Name: "Deleon Foundation"}, model.CategoryCharity, RuleRescue},
		{"rescue service text", Input{Name: "Paws Place", Services: "Dog Shelter/Rescue"}, model.CategoryRescue, RuleRescue},
		{"rescue partner service text", Input{Name: "Paws Place", Services: "rescue partner"}, model.CategoryRescue, RuleRescue},

		// groomer
		{"groom keyword", Input{Name: "Blue Pooch Grooming"}, model.CategoryGroomer, RuleGroomer},
		{"pet spa", Input{Name: "Biju Pet Spa"}, model.CategoryGroomer, RuleGroomer},
		{"groom plus daycare goes boarding", Input{Name: "Andy's Pet Grooming & Daycare"}, model.CategoryDaycareBoarding, RuleGroomer},
		{"groom plus boarding goes boarding", Input{Name: "Salon and Boarding"}, model.CategoryDaycareBoarding, RuleGroomer},
		{"groomer service exact", Input{Name: "Fur Friends", Services: " Groomer "}, model.CategoryGroomer, RuleGroomer},
		{"groomer service prefix", Input{Name: "Fur Friends", Services: "groomer, mobile"}, model.CategoryGroomer, RuleGroomer},

		// daycare
		{"daycare keyword", Input{Name: "Howie's Doggy Daycare"}, model.CategoryDaycareBoarding, RuleDaycare},
		{"hotel keyword", Input{Name: "Wag Hotels"}, model.CategoryDaycareBoarding, RuleDaycare},
		{"club keyword", Input{Name: "Saturday Dog Club"}, model.CategoryDaycareBoarding, RuleDaycare},
		{"daycare service text", Input{Name: "Fur Friends", Services: "daycare"}, model.CategoryDaycareBoarding, RuleDaycare},
		{"hotel service text", Input{Name: "Fur Friends", Services: "hotel"}, model.CategoryDaycareBoarding, RuleDaycare},
		{"groomer+daycare service is boarding", Input{Name: "Fur Friends", Services: "groomer, daycare"}, model.CategoryDaycareBoarding, RuleDaycare},

		// retail
		{"pet supplies", Input{Name: "Village Pet Supply"}, model.CategoryPetRetail, RuleRetail},
		{"feed", Input{Name: "Centinela Feed & Pet Supplies"}, model.CategoryPetRetail, RuleRetail},
		{"boutique", Input{Name: "Bruno's Cat and Dog Boutique"}, model.CategoryPetRetail, RuleRetail},
		{"retail service", Input{Name: "Fur Friends", Services: "retail"}, model.CategoryPetRetail, RuleRetail},
		{"retail service prefix", Input{Name: "Fur Friends", Services: "retail, toys"}, model.CategoryPetRetail, RuleRetail},

		// media / entertainment / charity
		{"press", Input{Name: "Santa Monica Daily Press"}, model.CategoryMedia, RuleMedia},
		{"podcast", Input{Name: "Bark Podcast"}, model.CategoryMedia, RuleMedia},
		{"dj", Input{Name: "Glenice DJ"}, model.CategoryEntertainment, RuleEntertainment},
		{"photo booth", Input{Name: "Photo Booth by Todd"}, model.CategoryEntertainment, RuleEntertainment},
		{"charity keyword", Input{Name: "Giving Paws"}, model.CategoryCharity, RuleCharity},
		{"donation in notes", Input{Name: "Goodie Bags", Notes: "Donation of raffle items"}, model.CategoryCharity, RuleCharity},
		{"silent auction", Input{Name: "Donations/Silent Auction"}, model.CategoryCharity, RuleCharity},

		// merch / graphics / food
		{"apparel", Input{Name: "Pup Apparel Co"}, model.CategoryMerchVendor, RuleMerch},
		{"sweaters service", Input{Name: "Knit Co", Services: "Dog sweaters"}, model.CategoryMerchVendor, RuleMerch},
		{"signs", Input{Name: "RNF Signs, Inc."}, model.CategoryDesignersGraphics, RuleGraphics},
		{"sign repair service", Input{Name: "Fixit Co", Services: "sign repair"}, model.CategoryDesignersGraphics, RuleGraphics},
		{"coffee", Input{Name: "Moxie Coffee"}, model.CategoryFoodVendor, RuleFood},
		{"bar needs trailing space", Input{Name: "Tiki Bar & Grill"}, model.CategoryFoodVendor, RuleFood},
		{"tavern", Input{Name: "Tavern on Main"}, model.CategoryFoodVendor, RuleFood},

		// trainer / influencer / multi-service / brands / lifestyle
		{"academy", Input{Name: "Alpha One Academy"}, model.CategoryPetBusiness, RuleTrainer},
		{"trainer service", Input{Name: "Good Boy Co", Services: "Trainer"}, model.CategoryPetBusiness, RuleTrainer},
		{"influencer", Input{Name: "Westside Dog Gang"}, model.CategoryMedia, RuleInfluencer},
		{"multi-service retail", Input{Name: "Fur Friends", Services: "mobile groomer and retail"}, model.CategoryPetBusiness, RuleMultiService},
		{"brand", Input{Name: "Kindybites"}, model.CategoryPetRetail, RuleBrand},
		{"surf shop", Input{Name: "Bay Street Surf"}, model.CategoryPetRetail, RuleLifestyle},
		{"bike shop", Input{Name: "The Bike Shop - SM"}, model.CategoryPetRetail, RuleLifestyle},

		// generic pet business refinement
		{"generic to groomer", Input{Name: "Fur Friends", Current: model.CategoryPetBusiness, Services: "mobile groom"}, model.CategoryGroomer, RuleRefineGeneric},
		{"generic stays generic", Input{Name: "Fur Friends", Current: model.CategoryPetBusiness}, model.CategoryPetBusiness, RuleRefineGeneric},

		// fallback
		{"unknown keeps nothing", Input{Name: "Unknown Co"}, model.CategoryOther, RuleFallback},
		{"unknown keeps current", Input{Name: "Unknown Co", Current: model.CategoryMedia}, model.CategoryMedia, RuleFallback},
		{"blank everything", Input{}, model.CategoryOther, RuleFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, by := c.Explain(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.rule, by)
			assert.Equal(t, tt.want, c.Classify(tt.in))
		})
	}
}

func TestClassify_CaseInsensitiveName(t *testing.T) {
	c := New(nil)
	assert.Equal(t, model.CategoryChamber, c.Classify(Input{Name: "  WESTSIDE CHAMBER OF COMMERCE "}))
	assert.Equal(t, model.CategoryGroomer, c.Classify(Input{Name: "mObIlE PeT sPa"}))
}

func TestClassify_NilTablesSkipsOverride(t *testing.T) {
	c := New(nil)
	got, by := c.Explain(Input{Name: "Bowie Barker"})
	assert.Equal(t, model.CategoryOther, got)
	assert.Equal(t, RuleFallback, by)
}

func TestClassify_Idempotent(t *testing.T) {
	c := New(testTables(t))
	names := []string{
		"Westside Chamber of Commerce", "Santa Monica Pet Rescue", "Blue Pooch Grooming",
		"Wag Hotels", "Moxie Coffee", "Embroidery Station", "Unknown Co", "Bowie Barker",
	}
	services := []string{"", "groomer", "retail", "daycare", "groomer, retail", "trainer", "hotel", "print shop"}
	for _, n := range names {
		for _, svc := range services {
			first := c.Classify(Input{Name: n, Services: svc})
			second := c.Classify(Input{Name: n, Services: svc, Current: first})
			assert.Equal(t, first, second, "name=%q services=%q", n, svc)
		}
	}
}

func TestClassify_PrintVendorExceptionsStable(t *testing.T) {
	c := New(nil)
	names := []string{"AV Graphics", "Venice Insider Pass", "LA Embroidery Co", "Prints & Threads"}
	services := []string{"", "retail", "groomer", "daycare", "trainer"}
	for _, n := range names {
		for _, svc := range services {
			first := c.Classify(Input{Name: n, Services: svc, Current: model.CategoryPrintVendor})
			assert.NotEqual(t, model.CategoryPrintVendor, first, n)
			second := c.Classify(Input{Name: n, Services: svc, Current: first})
			assert.Equal(t, first, second, "name=%q services=%q", n, svc)
		}
	}
}

func TestClassify_OutputAlwaysValid(t *testing.T) {
	c := New(testTables(t))
	for _, cur := range append([]model.Category{""}, model.Categories...) {
		got := c.Classify(Input{Name: "Something Random", Current: cur})
		assert.True(t, got.Valid(), "current=%q got=%q", cur, got)
	}
}

func TestRuleNames_Order(t *testing.T) {
	names := New(nil).RuleNames()
	require.Len(t, names, 21)
	assert.Equal(t, RuleKnownOverride, names[0])
	assert.Equal(t, RuleSticky, names[1])
	assert.Equal(t, RuleChamber, names[3])
	assert.Equal(t, RuleFallback, names[len(names)-1])
}

func TestInputFor(t *testing.T) {
	cat := model.CategoryGroomer
	p := model.Partner{
		Name:                "Fur Friends",
		Category:            &cat,
		ServicesDescription: model.String("groomer"),
		Notes:               model.String("note"),
	}
	in := InputFor(p)
	assert.Equal(t, "Fur Friends", in.Name)
	assert.Equal(t, model.CategoryGroomer, in.Current)
	assert.Equal(t, "groomer", in.Services)
	assert.Equal(t, "note", in.Notes)
}
