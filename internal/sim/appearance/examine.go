package appearance

import (
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	msgExamine        = "appearance.examine"
	msgAgeYoung       = "appearance.age.young"
	msgAgeMiddleAged  = "appearance.age.middle_aged"
	msgAgeOld         = "appearance.age.old"
	msgUnknownSpecies = "appearance.species.unknown"
)

// examineMessages holds the examine strings. English is the fallback.
var examineMessages = func() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range map[language.Tag]map[string]string{
		language.English: {
			msgExamine:        "%[1]s is %[2]s %[3]s.",
			msgAgeYoung:       "a young",
			msgAgeMiddleAged:  "a middle-aged",
			msgAgeOld:         "an old",
			msgUnknownSpecies: "unknown species",
		},
		language.German: {
			msgExamine:        "%[1]s ist %[2]s %[3]s.",
			msgAgeYoung:       "ein junger",
			msgAgeMiddleAged:  "ein mittelalter",
			msgAgeOld:         "ein alter",
			msgUnknownSpecies: "unbekannte Spezies",
		},
	} {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}()

// ageBracket picks the age message key from the species thresholds.
func ageBracket(young, old, age int) string {
	switch {
	case age < young:
		return msgAgeYoung
	case age < old:
		return msgAgeMiddleAged
	default:
		return msgAgeOld
	}
}

// Examine describes the appearance the way an onlooker would, e.g.
// "Alex is a young Human.".
func (e *Editor) Examine(a *Appearance, name string, tag language.Tag) string {
	p := message.NewPrinter(tag, message.Catalog(examineMessages))
	sp, ok := e.cat.IndexSpecies(a.Species)
	if !ok {
		e.log.Error("examine: unknown species", zap.String("species", a.Species))
		return p.Sprintf(msgExamine, name, p.Sprintf(msgAgeMiddleAged), p.Sprintf(msgUnknownSpecies))
	}
	species := sp.Name
	if species == "" {
		species = sp.ID
	}
	return p.Sprintf(msgExamine, name, p.Sprintf(ageBracket(sp.YoungAge, sp.OldAge, a.Age)), species)
}
