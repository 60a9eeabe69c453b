package model

import (
	"strings"
)

// Category is a partner_type tag from the closed partner taxonomy.
type Category string

const (
	CategoryGroomer           Category = "groomer"
	CategoryDaycareBoarding   Category = "daycare_boarding"
	CategoryPetRetail         Category = "pet_retail"
	CategoryRescue            Category = "rescue"
	CategoryMedia             Category = "media"
	CategoryEntertainment     Category = "entertainment"
	CategoryCharity           Category = "charity"
	CategoryMerchVendor       Category = "merch_vendor"
	CategoryDesignersGraphics Category = "designers_graphics"
	CategoryFoodVendor        Category = "food_vendor"
	CategoryPrintVendor       Category = "print_vendor"
	CategoryExoticShop        Category = "exotic_shop"
	CategoryChamber           Category = "chamber"
	CategoryPetBusiness       Category = "pet_business" // "other pet business", used for trainers
	CategoryOther             Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryGroomer,
	CategoryDaycareBoarding,
	CategoryPetRetail,
	CategoryRescue,
	CategoryMedia,
	CategoryEntertainment,
	CategoryCharity,
	CategoryMerchVendor,
	CategoryDesignersGraphics,
	CategoryFoodVendor,
	CategoryPrintVendor,
	CategoryExoticShop,
	CategoryChamber,
	CategoryPetBusiness,
	CategoryOther,
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Zone is a geographic service-area label.
type Zone string

const (
	ZoneWestsideCoastal  Zone = "Westside & Coastal"
	ZoneSouthValley      Zone = "South Valley"
	ZoneNorthValley      Zone = "North Valley"
	ZoneCentralEastside  Zone = "Central & Eastside"
	ZoneSouthBay         Zone = "South Bay"
	ZoneSanGabrielValley Zone = "San Gabriel Valley"
	ZoneOutOfArea        Zone = "Online/Remote/Out of Area"

	// ZoneIndeterminate means no rule could place the partner. It is never persisted.
	ZoneIndeterminate Zone = ""
)

// Zones lists every assignable zone, sentinel last.
var Zones = []Zone{
	ZoneWestsideCoastal,
	ZoneSouthValley,
	ZoneNorthValley,
	ZoneCentralEastside,
	ZoneSouthBay,
	ZoneSanGabrielValley,
	ZoneOutOfArea,
}

// Valid reports whether z is an assignable zone. ZoneIndeterminate is not valid.
func (z Zone) Valid() bool {
	for _, v := range Zones {
		if z == v {
			return true
		}
	}
	return false
}

// Field is a partner column name as stored in the record store.
type Field string

const (
	FieldCategory        Field = "partner_type"
	FieldZone            Field = "area"
	FieldWebsite         Field = "website"
	FieldAddress         Field = "address"
	FieldInstagramHandle Field = "instagram_handle"
	FieldFacebookURL     Field = "facebook_url"
	FieldTikTokHandle    Field = "tiktok_handle"
	FieldYouTubeURL      Field = "youtube_url"
)

// EnrichmentFields are the contact/location fields filled from the
// known-business table, in patch order.
var EnrichmentFields = []Field{
	FieldWebsite,
	FieldAddress,
	FieldInstagramHandle,
	FieldFacebookURL,
	FieldTikTokHandle,
	FieldYouTubeURL,
}

// Partner is a marketing partner record. Nullable text columns are pointers.
type Partner struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Category            *Category `json:"partner_type"`
	Zone                *Zone     `json:"area"`
	Address             *string   `json:"address"`
	Notes               *string   `json:"notes"`
	ServicesDescription *string   `json:"services_provided"`
	ProximityHint       *string   `json:"proximity_to_location"`
	Website             *string   `json:"website"`
	InstagramHandle     *string   `json:"instagram_handle"`
	FacebookURL         *string   `json:"facebook_url"`
	TikTokHandle        *string   `json:"tiktok_handle"`
	YouTubeURL          *string   `json:"youtube_url"`
}

// CurrentCategory returns the partner's category, or "" when unset.
func (p Partner) CurrentCategory() Category {
	if p.Category == nil {
		return ""
	}
	return *p.Category
}

// CurrentZone returns the partner's zone, or ZoneIndeterminate when unset.
func (p Partner) CurrentZone() Zone {
	if p.Zone == nil {
		return ZoneIndeterminate
	}
	return Zone(strings.TrimSpace(string(*p.Zone)))
}

// HasZone reports whether the partner already carries a non-blank zone.
func (p Partner) HasZone() bool {
	return p.CurrentZone() != ZoneIndeterminate
}

// Value returns the current value of an enrichment field ("" when null).
func (p Partner) Value(f Field) string {
	var v *string
	switch f {
	case FieldWebsite:
		v = p.Website
	case FieldAddress:
		v = p.Address
	case FieldInstagramHandle:
		v = p.InstagramHandle
	case FieldFacebookURL:
		v = p.FacebookURL
	case FieldTikTokHandle:
		v = p.TikTokHandle
	case FieldYouTubeURL:
		v = p.YouTubeURL
	case FieldCategory:
		return string(p.CurrentCategory())
	case FieldZone:
		return string(p.CurrentZone())
	}
	if v == nil {
		return ""
	}
	return *v
}

// Blank reports whether field f is null or whitespace-only on the partner.
func (p Partner) Blank(f Field) bool {
	return strings.TrimSpace(p.Value(f)) == ""
}

// Apply returns a copy of p with the patch applied.
func (p Partner) Apply(patch Patch) Partner {
	for _, e := range patch.entries {
		v := e.Value
		switch e.Field {
		case FieldCategory:
			c := Category(v)
			p.Category = &c
		case FieldZone:
			z := Zone(v)
			p.Zone = &z
		case FieldWebsite:
			p.Website = &v
		case FieldAddress:
			p.Address = &v
		case FieldInstagramHandle:
			p.InstagramHandle = &v
		case FieldFacebookURL:
			p.FacebookURL = &v
		case FieldTikTokHandle:
			p.TikTokHandle = &v
		case FieldYouTubeURL:
			p.YouTubeURL = &v
		}
	}
	return p
}

// String returns a pointer to s, or nil when s is blank.
func String(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
