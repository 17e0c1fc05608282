package visual

import "strings"

// Layer identifies one humanoid base sprite slot.
type Layer string

const (
	Chest              Layer = "Chest"
	Head               Layer = "Head"
	Snout              Layer = "Snout"
	Eyes               Layer = "Eyes"
	RArm               Layer = "RArm"
	LArm               Layer = "LArm"
	RLeg               Layer = "RLeg"
	LLeg               Layer = "LLeg"
	UndergarmentBottom Layer = "UndergarmentBottom"
	UndergarmentTop    Layer = "UndergarmentTop"
	LFoot              Layer = "LFoot"
	RFoot              Layer = "RFoot"
	LHand              Layer = "LHand"
	RHand              Layer = "RHand"
	FacialHair         Layer = "FacialHair"
	Hair               Layer = "Hair"
	HeadSide           Layer = "HeadSide"
	HeadTop            Layer = "HeadTop"
	Tail               Layer = "Tail"
)

// RenderOrder is the bottom-to-top order base layers are reserved in.
var RenderOrder = []Layer{
	Chest, Head, Snout, Eyes,
	RArm, LArm, RLeg, LLeg,
	UndergarmentBottom, UndergarmentTop,
	LFoot, RFoot, LHand, RHand,
	FacialHair, Hair, HeadSide, HeadTop, Tail,
}

var renderIndex = func() map[Layer]int {
	m := make(map[Layer]int, len(RenderOrder))
	for i, l := range RenderOrder {
		m[l] = i
	}
	return m
}()

func (l Layer) Valid() bool {
	_, ok := renderIndex[l]
	return ok
}

// RenderIndex returns the position of l in RenderOrder, or -1.
func RenderIndex(l Layer) int {
	if i, ok := renderIndex[l]; ok {
		return i
	}
	return -1
}

// Sublayers lists the layers that belong to a body part, the part itself first.
// Layers that are not body part roots have none.
func Sublayers(l Layer) []Layer {
	switch l {
	case Head:
		return []Layer{Head, HeadSide, HeadTop, Hair, FacialHair, Snout, Eyes}
	case Chest:
		return []Layer{Chest, Tail}
	case RArm:
		return []Layer{RArm, RHand}
	case LArm:
		return []Layer{LArm, LHand}
	case RLeg:
		return []Layer{RLeg, RFoot}
	case LLeg:
		return []Layer{LLeg, LFoot}
	case RHand, LHand, RFoot, LFoot:
		return []Layer{l}
	}
	return nil
}

// IsSexDimorphic reports whether the layer has per-sex sprite variants.
func IsSexDimorphic(l Layer) bool {
	switch l {
	case Chest, Head, RArm, LArm, RLeg, LLeg:
		return true
	}
	return false
}

// GetSexMorph derives the sex-specific sprite layer id by suffixing the sex
// name. Unsexed bodies, non-dimorphic layers and ids that already carry a sex
// suffix are returned unchanged.
func GetSexMorph(l Layer, sex Sex, id string) string {
	if id == "" || sex == Unsexed || !IsSexDimorphic(l) {
		return id
	}
	if strings.HasSuffix(id, string(Male)) || strings.HasSuffix(id, string(Female)) {
		return id
	}
	return id + string(sex)
}
