package fill

import (
	"math"
	"testing"

	"github.com/rickgao/baserate-arb/internal/model"
)

func TestWalk(t *testing.T) {
	book := []model.Level{{Price: 12, Quantity: 200}, {Price: 10, Quantity: 100}}

	tests := []struct {
		name     string
		target   int
		wantQty  int
		wantLast float64
		wantVWAP float64
	}{
		{"within first level", 50, 50, 10, 10},
		{"spans levels", 250, 250, 12, (100*10 + 150*12) / 250.0},
		{"exhausts book", 1000, 300, 12, (100*10 + 200*12) / 300.0},
		{"exact total", 300, 300, 12, (100*10 + 200*12) / 300.0},
		{"zero target", 0, 0, 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Walk(book, tt.target)
			if !got.FromBook {
				t.Fatal("FromBook = false")
			}
			if got.Quantity != tt.wantQty {
				t.Errorf("Quantity = %d, want %d", got.Quantity, tt.wantQty)
			}
			if got.Price != tt.wantLast {
				t.Errorf("Price = %v, want %v", got.Price, tt.wantLast)
			}
			if math.Abs(got.VWAP-tt.wantVWAP) > 1e-9 {
				t.Errorf("VWAP = %v, want %v", got.VWAP, tt.wantVWAP)
			}
		})
	}

	if book[0].Price != 12 {
		t.Error("Walk modified its input")
	}
}

func TestWalkQuantityNeverExceedsTarget(t *testing.T) {
	book := []model.Level{{Price: 5, Quantity: 7}, {Price: 6, Quantity: 13}, {Price: 9, Quantity: 40}}
	for target := 1; target <= 80; target++ {
		got := Walk(book, target)
		if got.Quantity > target {
			t.Fatalf("target %d: Quantity = %d", target, got.Quantity)
		}
		if got.Quantity > 60 {
			t.Fatalf("target %d: Quantity %d exceeds book", target, got.Quantity)
		}
	}
}

func TestEstimateFallback(t *testing.T) {
	m := model.Market{YesPrice: 35}

	got := Estimate(m, model.SideNo, 100)
	if got.FromBook {
		t.Error("FromBook = true for empty book")
	}
	if got.Price != 65 || got.Quantity != 0 {
		t.Errorf("Estimate() = %+v, want price 65 quantity 0", got)
	}

	m.OrderBook = &model.OrderBook{YesAsks: []model.Level{{Price: 36, Quantity: 10}}}
	got = Estimate(m, model.SideYes, 100)
	if !got.FromBook || got.Price != 36 || got.Quantity != 10 {
		t.Errorf("Estimate() = %+v, want book fill at 36 x 10", got)
	}
}
