package cart

import (
	"fmt"
	"sync"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is the user-facing outcome of a cart mutation. Refusals are notices,
// not errors, and leave the cart unchanged.
type Notice struct {
	Kind    NoticeKind
	Message string
}

func (n Notice) OK() bool { return n.Kind == NoticeSuccess }

func success(format string, args ...any) Notice {
	return Notice{Kind: NoticeSuccess, Message: fmt.Sprintf(format, args...)}
}

func refusal(format string, args ...any) Notice {
	return Notice{Kind: NoticeError, Message: fmt.Sprintf(format, args...)}
}

// Line is one product staged for purchase. Name, Price and Image are copied
// when the line is created and may drift from the live product.
type Line struct {
	ID       uint64          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image"`
}

func (l Line) Subtotal() decimal.Decimal {
	return domain.LineTotal(l.Quantity, l.Price)
}

// Cart is the in-memory copy of record. Every accepted mutation is written to
// the Store before it returns.
type Cart struct {
	mu       sync.Mutex
	store    Store
	snapshot *Snapshot
	lines    []Line
}

// Load reads the persisted cart once.
func Load(store Store, snapshot *Snapshot) (*Cart, error) {
	lines, err := store.Load()
	if err != nil {
		return nil, err
	}

	kept := lines[:0]
	for _, l := range lines {
		if l.Quantity > 0 {
			kept = append(kept, l)
		}
	}
	return &Cart{store: store, snapshot: snapshot, lines: kept}, nil
}

func (c *Cart) Snapshot() *Snapshot { return c.snapshot }

// Add puts one unit of the product in the cart.
func (c *Cart) Add(id uint64) (Notice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.snapshot.Lookup(id)
	if !ok {
		return refusal("Product %d not found", id), nil
	}
	if p.Stock < 1 {
		return refusal("%s is out of stock", p.Name), nil
	}

	if i := c.indexOf(id); i >= 0 {
		if c.lines[i].Quantity+1 > p.Stock {
			return refusal("Cannot add more %s: only %d in stock", p.Name, p.Stock), nil
		}
		next := c.copyLines()
		next[i].Quantity++
		if err := c.commit(next); err != nil {
			return Notice{}, err
		}
		return success("Added %s to cart", p.Name), nil
	}

	next := append(c.copyLines(), Line{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Quantity: 1,
		Image:    p.CoverImage(),
	})
	if err := c.commit(next); err != nil {
		return Notice{}, err
	}
	return success("Added %s to cart", p.Name), nil
}

// SetQuantity sets the quantity of a line already in the cart. n <= 0 removes
// it.
func (c *Cart) SetQuantity(id uint64, n int) (Notice, error) {
	if n <= 0 {
		return c.Remove(id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return refusal("Product %d is not in the cart", id), nil
	}
	p, ok := c.snapshot.Lookup(id)
	if !ok {
		return refusal("%s is no longer available", c.lines[i].Name), nil
	}
	if n > p.Stock {
		return refusal("Only %d %s available", p.Stock, p.Name), nil
	}

	next := c.copyLines()
	next[i].Quantity = n
	if err := c.commit(next); err != nil {
		return Notice{}, err
	}
	return success("%s quantity set to %d", p.Name, n), nil
}

// Remove deletes the line if present.
func (c *Cart) Remove(id uint64) (Notice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		if l.ID != id {
			next = append(next, l)
		}
	}
	if err := c.commit(next); err != nil {
		return Notice{}, err
	}
	return success("Item removed from cart"), nil
}

// Clear empties the cart and deletes the persisted copy.
func (c *Cart) Clear() (Notice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Clear(); err != nil {
		return Notice{}, err
	}
	c.lines = nil
	return success("Cart cleared"), nil
}

// removeLines drops the given product ids, clearing the store when nothing is
// left.
func (c *Cart) removeLines(ids map[uint64]bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		if !ids[l.ID] {
			next = append(next, l)
		}
	}
	if len(next) == 0 {
		if err := c.store.Clear(); err != nil {
			return err
		}
		c.lines = nil
		return nil
	}
	return c.commit(next)
}

func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLines()
}

func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Total() decimal.Decimal {
	return Total(c.Lines())
}

// Total sums line subtotals.
func Total(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

func (c *Cart) indexOf(id uint64) int {
	for i, l := range c.lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) copyLines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// commit persists next and only then makes it current.
func (c *Cart) commit(next []Line) error {
	if err := c.store.Save(next); err != nil {
		return err
	}
	c.lines = next
	return nil
}
