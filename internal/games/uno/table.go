package uno

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// HandSize is the number of cards dealt to each player.
const HandSize = 7

var (
	// ErrIllegalCard is returned when a card does not match the top card.
	ErrIllegalCard = errors.New("you can't place that card")
	// ErrColorRequired is returned when a wild card is played without a colour.
	ErrColorRequired = errors.New("choose a color")
	// ErrGameOver is returned for moves after someone has won.
	ErrGameOver = errors.New("uno: game is over")
)

// Table is the state of one game: hands, deck, turn order and the active
// colour.
type Table struct {
	deck      *Deck
	hands     [][]Card
	current   int
	clockwise bool
	color     Color
	winner    int
}

// NewTable deals HandSize cards to each of 2 to 4 players and turns over a
// non-wild starting card.
func NewTable(players int, shuffle func(n int, swap func(i, j int))) (*Table, error) {
	if players < 2 || players > 4 {
		return nil, fmt.Errorf("uno: %d players, want 2 to 4", players)
	}
	t := &Table{deck: NewDeck(shuffle), hands: make([][]Card, players), clockwise: true, winner: -1}
	for p := range t.hands {
		for i := 0; i < HandSize; i++ {
			card, err := t.deck.Draw()
			if err != nil {
				return nil, err
			}
			t.hands[p] = append(t.hands[p], card)
		}
	}
	if err := t.deck.flipStart(); err != nil {
		return nil, err
	}
	top, _ := t.deck.Top()
	t.color = top.Color
	return t, nil
}

// Players is the number of hands at the table.
func (t *Table) Players() int {
	return len(t.hands)
}

// Current is the index of the player to move.
func (t *Table) Current() int {
	return t.current
}

// Clockwise reports the direction of play.
func (t *Table) Clockwise() bool {
	return t.clockwise
}

// Hand returns a copy of player p's cards.
func (t *Table) Hand(p int) []Card {
	return append([]Card(nil), t.hands[p]...)
}

// Top is the card in play.
func (t *Table) Top() Card {
	top, _ := t.deck.Top()
	return top
}

// Color is the colour the next card must match.
func (t *Table) Color() Color {
	return t.color
}

// DeckLen is the number of cards left to draw.
func (t *Table) DeckLen() int {
	return t.deck.Len()
}

// Winner returns the winning player once a hand is empty.
func (t *Table) Winner() (int, bool) {
	return t.winner, t.winner >= 0
}

// CanPlay reports whether card may go on the current top card.
func (t *Table) CanPlay(card Card) bool {
	if card.Wild() {
		return true
	}
	top := t.Top()
	if top.Wild() {
		return card.Color == t.color
	}
	return card.Color == top.Color || card.Name == top.Name
}

// Select finds a card in the current hand by 1-based position or short name.
func (t *Table) Select(input string) (int, error) {
	hand := t.hands[t.current]
	input = strings.ToUpper(strings.TrimSpace(input))
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(hand) {
			return n - 1, nil
		}
	} else {
		for i, card := range hand {
			if strings.ToUpper(card.Short()) == input {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("card must be an integer in range 1 - %d or the card name", len(hand))
}

// Draw gives the current player one card; the turn does not pass.
func (t *Table) Draw() error {
	if t.winner >= 0 {
		return ErrGameOver
	}
	card, err := t.deck.Draw()
	if err != nil {
		return err
	}
	t.hands[t.current] = append(t.hands[t.current], card)
	return nil
}

// Play puts the current player's card at idx on the pile and applies its
// effect. color names the new colour for wild cards and is ignored otherwise.
func (t *Table) Play(idx int, color Color) error {
	if t.winner >= 0 {
		return ErrGameOver
	}
	hand := t.hands[t.current]
	if idx < 0 || idx >= len(hand) {
		return fmt.Errorf("card must be an integer in range 1 - %d or the card name", len(hand))
	}
	card := hand[idx]
	if !t.CanPlay(card) {
		return ErrIllegalCard
	}
	if card.Wild() && !suitColor(color) {
		return ErrColorRequired
	}

	t.hands[t.current] = append(hand[:idx:idx], hand[idx+1:]...)
	t.deck.Discard(card)
	t.color = card.Color
	if card.Wild() {
		t.color = color
	}
	if len(t.hands[t.current]) == 0 {
		t.winner = t.current
		return nil
	}

	switch card.Name {
	case NameReverse:
		t.clockwise = !t.clockwise
		if len(t.hands) == 2 {
			return nil
		}
		t.current = t.next(1)
	case NameSkip:
		t.current = t.next(2)
	case NameDraw2:
		t.penalize(t.next(1), 2)
		t.current = t.next(2)
	case NameDraw4:
		t.penalize(t.next(1), 4)
		t.current = t.next(2)
	default:
		t.current = t.next(1)
	}
	return nil
}

// penalize draws up to n cards for player p, stopping if the deck runs out.
func (t *Table) penalize(p, n int) {
	for i := 0; i < n; i++ {
		card, err := t.deck.Draw()
		if err != nil {
			return
		}
		t.hands[p] = append(t.hands[p], card)
	}
}

func (t *Table) next(steps int) int {
	if !t.clockwise {
		steps = -steps
	}
	n := len(t.hands)
	return ((t.current+steps)%n + n) % n
}

func suitColor(c Color) bool {
	for _, known := range Colors {
		if c == known {
			return true
		}
	}
	return false
}
