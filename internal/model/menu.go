package model

import "time"

// Category buckets a menu item into a coarse dish type.
type Category string

const (
	CategorySoup    Category = "soup"
	CategoryMain    Category = "main"
	CategorySide    Category = "side"
	CategoryDessert Category = "dessert"
	CategoryDrink   Category = "drink"
	CategoryOther   Category = "other"
)

// NormalizeCategory maps an extracted category string onto the known set.
// Anything unrecognized becomes CategoryOther.
func NormalizeCategory(raw string) Category {
	switch Category(raw) {
	case CategorySoup, CategoryMain, CategorySide, CategoryDessert, CategoryDrink, CategoryOther:
		return Category(raw)
	default:
		return CategoryOther
	}
}

// MenuItem is a single dish on a daily menu. Price is nil when the source
// page did not state one; once set it is always a normalized number, never
// raw price text.
type MenuItem struct {
	Name      string   `json:"name"`
	Price     *float64 `json:"price"`
	Allergens []string `json:"allergens,omitempty"`
	Weight    string   `json:"weight,omitempty"`
	Category  Category `json:"category"`
}

// RestaurantMenu is the externally observed artifact: one restaurant's
// resolved menu for one calendar date. The cached copy always carries the
// unfiltered item set and a nil RecommendedMeal; preference filtering is a
// view transform applied per response, never persisted.
type RestaurantMenu struct {
	RestaurantName  string     `json:"restaurant_name"`
	Date            string     `json:"date"`
	DayOfWeek       string     `json:"day_of_week"`
	MenuItems       []MenuItem `json:"menu_items"`
	DailyMenu       bool       `json:"daily_menu"`
	RecommendedMeal *string    `json:"recommendedMeal"`
}

// Preferences are caller-supplied dietary/budget constraints. Price is a
// positive ceiling; Allergens lists allergen codes to exclude.
type Preferences struct {
	Price     *float64 `json:"price,omitempty"`
	Allergens []int    `json:"allergens,omitempty"`
}

// IsZero reports whether no constraint is set.
func (p *Preferences) IsZero() bool {
	return p == nil || (p.Price == nil && len(p.Allergens) == 0)
}

// DateLayout is the wire format for menu dates.
const DateLayout = "2006-01-02"

var czechDays = [...]string{
	time.Sunday:    "neděle",
	time.Monday:    "pondělí",
	time.Tuesday:   "úterý",
	time.Wednesday: "středa",
	time.Thursday:  "čtvrtek",
	time.Friday:    "pátek",
	time.Saturday:  "sobota",
}

// CzechDay derives the Czech weekday name from a YYYY-MM-DD date string.
// The weekday is always computed from the date, never supplied by a caller,
// so the date/day_of_week pairing stays internally consistent. Returns ""
// for an unparseable date.
func CzechDay(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return czechDays[t.Weekday()]
}
