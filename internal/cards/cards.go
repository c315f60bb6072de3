package cards

import "math/rand"

type Suit string

const (
	SuitHearts   Suit = "hearts"
	SuitDiamonds Suit = "diamonds"
	SuitClubs    Suit = "clubs"
	SuitSpades   Suit = "spades"
)

type Color string

const (
	ColorRed   Color = "red"
	ColorBlack Color = "black"
)

// SevenValue is the reserved rare value. The selector never picks it on
// its own; only an administrative override can force it.
const SevenValue = 7

const (
	MinValue = 1
	MaxValue = 13
)

type Card struct {
	Value int  `json:"value"`
	Suit  Suit `json:"suit"`
}

func (c Card) Color() Color {
	if c.Suit == SuitHearts || c.Suit == SuitDiamonds {
		return ColorRed
	}
	return ColorBlack
}

var rankNames = map[int]string{1: "A", 11: "J", 12: "Q", 13: "K"}

func (c Card) Rank() string {
	if name, ok := rankNames[c.Value]; ok {
		return name
	}
	return map[int]string{2: "2", 3: "3", 4: "4", 5: "5", 6: "6", 7: "7", 8: "8", 9: "9", 10: "10"}[c.Value]
}

type BetType string

const (
	BetLow   BetType = "low"
	BetHigh  BetType = "high"
	BetRed   BetType = "red"
	BetBlack BetType = "black"
	BetSeven BetType = "seven"
)

// BetTypes lists every accepted wager type in stable order.
var BetTypes = []BetType{BetLow, BetHigh, BetRed, BetBlack, BetSeven}

var multipliers = map[BetType]float64{
	BetLow:   2.0,
	BetHigh:  2.0,
	BetRed:   2.0,
	BetBlack: 2.0,
	BetSeven: 11.5,
}

func ValidBetType(t BetType) bool {
	_, ok := multipliers[t]
	return ok
}

// Multiplier returns the total payout multiplier for a winning wager,
// stake included.
func Multiplier(t BetType) float64 {
	return multipliers[t]
}

// Wins reports whether a wager of the given type wins against the card.
// Low and high bands exclude the seven; color bets follow the concrete
// card even when a seven was forced.
func (c Card) Wins(t BetType) bool {
	switch t {
	case BetLow:
		return c.Value < SevenValue
	case BetHigh:
		return c.Value > SevenValue
	case BetRed:
		return c.Color() == ColorRed
	case BetBlack:
		return c.Color() == ColorBlack
	case BetSeven:
		return c.Value == SevenValue
	}
	return false
}

type Category string

const (
	CategoryRedLow    Category = "red-low"
	CategoryRedHigh   Category = "red-high"
	CategoryBlackLow  Category = "black-low"
	CategoryBlackHigh Category = "black-high"
	CategorySeven     Category = "seven"
)

// AutoCategories is the stably ordered set the selector may pick from.
// CategorySeven is reachable only through an override.
var AutoCategories = []Category{CategoryRedLow, CategoryRedHigh, CategoryBlackLow, CategoryBlackHigh}

func ValidCategory(cat Category) bool {
	if cat == CategorySeven {
		return true
	}
	for _, c := range AutoCategories {
		if c == cat {
			return true
		}
	}
	return false
}

func (cat Category) color() Color {
	if cat == CategoryRedLow || cat == CategoryRedHigh {
		return ColorRed
	}
	return ColorBlack
}

func (cat Category) low() bool {
	return cat == CategoryRedLow || cat == CategoryBlackLow
}

// CategoryWins reports whether a wager of the given type pays out under
// an auto category. Seven wagers never win under an auto category.
func CategoryWins(cat Category, t BetType) bool {
	switch t {
	case BetLow:
		return cat.low()
	case BetHigh:
		return !cat.low()
	case BetRed:
		return cat.color() == ColorRed
	case BetBlack:
		return cat.color() == ColorBlack
	}
	return false
}

var suitsByColor = map[Color][2]Suit{
	ColorRed:   {SuitHearts, SuitDiamonds},
	ColorBlack: {SuitClubs, SuitSpades},
}

// Materialize picks a uniform concrete card within the category.
func Materialize(cat Category, rng *rand.Rand) Card {
	if cat == CategorySeven {
		suit := []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}[rng.Intn(4)]
		return Card{Value: SevenValue, Suit: suit}
	}
	var value int
	if cat.low() {
		value = MinValue + rng.Intn(SevenValue-MinValue)
	} else {
		value = SevenValue + 1 + rng.Intn(MaxValue-SevenValue)
	}
	suits := suitsByColor[cat.color()]
	return Card{Value: value, Suit: suits[rng.Intn(2)]}
}

// RandomNonSeven picks a uniform card over the whole deck minus sevens.
func RandomNonSeven(rng *rand.Rand) Card {
	cat := AutoCategories[rng.Intn(len(AutoCategories))]
	return Materialize(cat, rng)
}
