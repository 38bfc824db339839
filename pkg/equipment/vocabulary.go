// Package equipment maps free-text equipment strings onto the controlled
// vocabulary of canonical kitchen capabilities. Matching is local and cheap so
// it can reject unknown equipment before any reasoning call is made.
package equipment

import (
	"strings"
)

// Capability is a canonical equipment category name.
type Capability string

const (
	Fryer        Capability = "fryer"
	FlatTop      Capability = "flat_top"
	Grill        Capability = "grill"
	Waterbath    Capability = "waterbath"
	Turbo        Capability = "turbo"
	Salamander   Capability = "salamander"
	Toaster      Capability = "toaster"
	Induction    Capability = "induction"
	Steamer      Capability = "steamer"
	Microwave    Capability = "microwave"
	CombiOven    Capability = "combi_oven"
	RiceCooker   Capability = "rice_cooker"
	HotHoldWells Capability = "hot_hold_wells"
)

// Alias maps a common synonym onto a capability.
type Alias struct {
	Text       string
	Capability Capability
}

// Vocabulary is an ordered set of capabilities plus an alias table.
type Vocabulary struct {
	capabilities []Capability
	aliases      []Alias
}

// NewVocabulary builds a vocabulary. Order matters: the first capability or
// alias that matches wins.
func NewVocabulary(capabilities []Capability, aliases []Alias) *Vocabulary {
	return &Vocabulary{capabilities: capabilities, aliases: aliases}
}

// Default is the vocabulary used by semantic pre-validation.
var Default = NewVocabulary(
	[]Capability{
		Fryer,
		FlatTop,
		Grill,
		Waterbath,
		Turbo,
		Salamander,
		Toaster,
		Induction,
		Steamer,
		Microwave,
		CombiOven,
		RiceCooker,
		HotHoldWells,
	},
	[]Alias{
		{Text: "deep-fryer", Capability: Fryer},
		{Text: "deep fat", Capability: Fryer},
		{Text: "griddle", Capability: FlatTop},
		{Text: "flat-top", Capability: FlatTop},
		{Text: "flat top", Capability: FlatTop},
		{Text: "plancha", Capability: FlatTop},
		{Text: "sous vide", Capability: Waterbath},
		{Text: "sous-vide", Capability: Waterbath},
		{Text: "water bath", Capability: Waterbath},
		{Text: "turbo chef", Capability: Turbo},
		{Text: "turbochef", Capability: Turbo},
		{Text: "speed oven", Capability: Turbo},
		{Text: "char grill", Capability: Grill},
		{Text: "chargrill", Capability: Grill},
		{Text: "broiler", Capability: Salamander},
		{Text: "holding cabinet", Capability: HotHoldWells},
		{Text: "heat lamp", Capability: HotHoldWells},
		{Text: "hot hold", Capability: HotHoldWells},
		{Text: "combi", Capability: CombiOven},
		{Text: "steam table", Capability: Steamer},
	},
)

// Match resolves raw using the default vocabulary.
func Match(raw string) (Capability, bool) {
	return Default.Match(raw)
}

// Capabilities lists the default canonical capabilities.
func Capabilities() []Capability {
	return Default.Capabilities()
}

// Match resolves a free-text equipment string. It tries, in order, an exact
// case-insensitive match, a substring match on a capability name and finally
// the alias table. Empty input never matches.
func (v *Vocabulary) Match(raw string) (Capability, bool) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return "", false
	}

	for _, c := range v.capabilities {
		if text == string(c) || text == spaced(c) {
			return c, true
		}
	}

	for _, c := range v.capabilities {
		if strings.Contains(text, string(c)) || strings.Contains(text, spaced(c)) {
			return c, true
		}
	}

	for _, a := range v.aliases {
		if strings.Contains(text, a.Text) {
			return a.Capability, true
		}
	}

	return "", false
}

// Capabilities returns a copy of the canonical capability list.
func (v *Vocabulary) Capabilities() []Capability {
	out := make([]Capability, len(v.capabilities))
	copy(out, v.capabilities)

	return out
}

// Names returns the canonical capability names joined for messages.
func (v *Vocabulary) Names() string {
	names := make([]string, len(v.capabilities))
	for i, c := range v.capabilities {
		names[i] = string(c)
	}

	return strings.Join(names, ", ")
}

func spaced(c Capability) string {
	return strings.ReplaceAll(string(c), "_", " ")
}
