package session

// Deck tracks the current slide. The index never leaves [0, count-1] and
// navigation does not wrap.
type Deck struct {
	index int
	count int
}

func NewDeck(count int) *Deck {
	if count < 1 {
		count = 1
	}
	return &Deck{count: count}
}

func (d *Deck) Index() int { return d.index }
func (d *Deck) Count() int { return d.count }

func (d *Deck) Next() bool {
	if d.index >= d.count-1 {
		return false
	}
	d.index++
	return true
}

func (d *Deck) Prev() bool {
	if d.index == 0 {
		return false
	}
	d.index--
	return true
}

// GoTo selects a slide by position. Out-of-range positions are ignored.
func (d *Deck) GoTo(i int) bool {
	if i < 0 || i >= d.count || i == d.index {
		return false
	}
	d.index = i
	return true
}
