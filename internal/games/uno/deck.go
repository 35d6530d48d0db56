package uno

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDeckExhausted is returned when both the draw and discard piles are empty.
var ErrDeckExhausted = errors.New("uno: no cards left to draw")

// Color of a card. Wild cards take a chosen colour once played.
type Color string

const (
	Blue   Color = "Blue"
	Green  Color = "Green"
	Red    Color = "Red"
	Yellow Color = "Yellow"
	Wild   Color = "Wild"
)

// Colors are the four suits a wild card can name.
var Colors = []Color{Blue, Green, Red, Yellow}

// ParseColor accepts a colour name or its initial in any case.
func ParseColor(input string) (Color, bool) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return "", false
	}
	for _, c := range Colors {
		name := strings.ToLower(string(c))
		if input == name || input == name[:1] {
			return c, true
		}
	}
	return "", false
}

const (
	NameReverse = "Reverse"
	NameSkip    = "Skip"
	NameDraw2   = "+2"
	NameChange  = "Change"
	NameDraw4   = "+4"
)

var suitNames = []string{
	"0", "1", "1", "2", "2", "3", "3", "4", "4", "5", "5",
	"6", "6", "7", "7", "8", "8", "9", "9",
	NameReverse, NameSkip, NameDraw2,
}

// DeckSize is the number of cards in a full deck.
const DeckSize = 4*22 + 8

// Card is a single Uno card.
type Card struct {
	Color Color
	Name  string
}

// Wild reports whether the card can be played on anything.
func (c Card) Wild() bool {
	return c.Color == Wild
}

// Short is the two-letter name typed to play the card.
func (c Card) Short() string {
	return string(c.Color[:1]) + c.Name[:1]
}

func (c Card) String() string {
	return fmt.Sprintf("%s %s", c.Color, c.Name)
}

// NewCards returns the cards of a full deck in a fixed order.
func NewCards() []Card {
	cards := make([]Card, 0, DeckSize)
	for _, color := range Colors {
		for _, name := range suitNames {
			cards = append(cards, Card{Color: color, Name: name})
		}
	}
	for i := 0; i < 4; i++ {
		cards = append(cards, Card{Color: Wild, Name: NameChange}, Card{Color: Wild, Name: NameDraw4})
	}
	return cards
}

// Deck is the draw pile plus the discard pile; the last discard is the top
// card in play.
type Deck struct {
	draw    []Card
	discard []Card
	shuffle func(n int, swap func(i, j int))
}

// NewDeck shuffles a full deck. A nil shuffle keeps the fixed order.
func NewDeck(shuffle func(n int, swap func(i, j int))) *Deck {
	d := &Deck{draw: NewCards(), shuffle: shuffle}
	d.mix(d.draw)
	return d
}

func (d *Deck) mix(cards []Card) {
	if d.shuffle != nil {
		d.shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	}
}

// Len is the number of cards left to draw.
func (d *Deck) Len() int {
	return len(d.draw)
}

// Draw takes the next card, turning the discard pile (less its top card)
// over when the draw pile is empty.
func (d *Deck) Draw() (Card, error) {
	if len(d.draw) == 0 {
		if len(d.discard) <= 1 {
			return Card{}, ErrDeckExhausted
		}
		top := d.discard[len(d.discard)-1]
		d.draw = append([]Card(nil), d.discard[:len(d.discard)-1]...)
		d.discard = []Card{top}
		d.mix(d.draw)
	}
	card := d.draw[len(d.draw)-1]
	d.draw = d.draw[:len(d.draw)-1]
	return card, nil
}

// Discard places card on top of the pile.
func (d *Deck) Discard(card Card) {
	d.discard = append(d.discard, card)
}

// Top is the card in play.
func (d *Deck) Top() (Card, bool) {
	if len(d.discard) == 0 {
		return Card{}, false
	}
	return d.discard[len(d.discard)-1], true
}

// flipStart turns over the first non-wild card; wild cards go to the bottom
// of the draw pile.
func (d *Deck) flipStart() error {
	for range d.draw {
		card, err := d.Draw()
		if err != nil {
			return err
		}
		if !card.Wild() {
			d.Discard(card)
			return nil
		}
		d.draw = append([]Card{card}, d.draw...)
	}
	return errors.New("uno: no coloured card to start with")
}
