package visual

type Sex string

const (
	Male    Sex = "Male"
	Female  Sex = "Female"
	Unsexed Sex = "Unsexed"
)

func (s Sex) Valid() bool {
	switch s {
	case Male, Female, Unsexed:
		return true
	}
	return false
}

// Gender is grammatical only; it never affects sprites.
type Gender string

const (
	Epicene   Gender = "Epicene"
	Masculine Gender = "Masculine"
	Feminine  Gender = "Feminine"
	Neuter    Gender = "Neuter"
)

func (g Gender) Valid() bool {
	switch g {
	case Epicene, Masculine, Feminine, Neuter:
		return true
	}
	return false
}

// DefaultGender mirrors the sex when a profile does not pick one.
func DefaultGender(s Sex) Gender {
	switch s {
	case Male:
		return Masculine
	case Female:
		return Feminine
	}
	return Epicene
}
