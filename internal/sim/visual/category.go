package visual

// Category groups markings that share a point budget.
type Category string

const (
	CategorySpecial            Category = "Special"
	CategoryHair               Category = "Hair"
	CategoryFacialHair         Category = "FacialHair"
	CategoryUndergarmentTop    Category = "UndergarmentTop"
	CategoryUndergarmentBottom Category = "UndergarmentBottom"
	CategoryHead               Category = "Head"
	CategoryHeadTop            Category = "HeadTop"
	CategoryHeadSide           Category = "HeadSide"
	CategorySnout              Category = "Snout"
	CategoryChest              Category = "Chest"
	CategoryArms               Category = "Arms"
	CategoryLegs               Category = "Legs"
	CategoryTail               Category = "Tail"
	CategoryOverlay            Category = "Overlay"
)

// CategoryOrder fixes the order categories are walked in when applying markings.
var CategoryOrder = []Category{
	CategorySpecial,
	CategoryHair,
	CategoryFacialHair,
	CategoryUndergarmentTop,
	CategoryUndergarmentBottom,
	CategoryHead,
	CategoryHeadTop,
	CategoryHeadSide,
	CategorySnout,
	CategoryChest,
	CategoryArms,
	CategoryLegs,
	CategoryTail,
	CategoryOverlay,
}

var categoryIndex = func() map[Category]int {
	m := make(map[Category]int, len(CategoryOrder))
	for i, c := range CategoryOrder {
		m[c] = i
	}
	return m
}()

func (c Category) Valid() bool {
	_, ok := categoryIndex[c]
	return ok
}

// CategoryIndex returns the position of c in CategoryOrder, or -1.
func CategoryIndex(c Category) int {
	if i, ok := categoryIndex[c]; ok {
		return i
	}
	return -1
}
