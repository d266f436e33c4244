package fees

import (
	"math"
	"testing"

	"github.com/rickgao/baserate-arb/internal/model"
)

func TestRate(t *testing.T) {
	tests := []struct {
		price float64
		maker bool
		want  float64
	}{
		{2, false, 0.01},
		{7, false, 0.015},
		{45, false, 0.035},
		{50, false, 0.035},
		{65, false, 0.03},
		{97, false, 0.01},
		{100, false, 0.01},
		{50, true, 0.0175},
	}
	for _, tt := range tests {
		if got := Rate(model.PlatformKalshi, tt.price, tt.maker); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Rate(%v, maker=%v) = %v, want %v", tt.price, tt.maker, got, tt.want)
		}
	}
}

func TestPerContract(t *testing.T) {
	if got := PerContract(model.PlatformKalshi, 40, false); math.Abs(got-1.4) > 1e-9 {
		t.Errorf("PerContract = %v, want 1.4", got)
	}
	if got := PerContract(model.PlatformPolymarket, 40, false); got != 0 {
		t.Errorf("Polymarket PerContract = %v, want 0", got)
	}
}
