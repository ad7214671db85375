package instrument

import (
	"testing"

	"github.com/xraph/tollgate/id"
)

func testInstrument() *Instrument {
	return &Instrument{
		ID:               id.NewInstrumentID(),
		Owner:            "owner",
		MaxSupply:        100000,
		AccessThreshold:  5,
		PremiumThreshold: 50,
		Minters:          []string{"mint-bot"},
		Admins:           []string{"ops"},
		Pausers:          []string{"guardian"},
	}
}

func TestCanMint(t *testing.T) {
	tests := []struct {
		name   string
		supply int64
		amount int64
		want   bool
	}{
		{"fresh instrument", 0, 1, true},
		{"up to cap exactly", 0, 100000, true},
		{"over cap", 0, 100001, false},
		{"near cap", 99999, 1, true},
		{"at cap", 100000, 1, false},
		{"zero amount", 0, 0, false},
		{"negative amount", 0, -5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := testInstrument()
			inst.TotalSupply = tt.supply
			if got := inst.CanMint(tt.amount); got != tt.want {
				t.Errorf("CanMint(%d) with supply %d: got %v, want %v", tt.amount, tt.supply, got, tt.want)
			}
		})
	}
}

func TestMeetsThreshold(t *testing.T) {
	inst := testInstrument()

	tests := []struct {
		name     string
		balance  int64
		override int64
		want     bool
	}{
		{"below default", 4, 0, false},
		{"at default", 5, 0, true},
		{"above default", 6, 0, true},
		{"override raises bar", 5, 10, false},
		{"override met", 10, 10, true},
		{"override lowers bar", 3, 2, true},
		{"zero override falls back to default", 5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inst.MeetsThreshold(tt.balance, tt.override); got != tt.want {
				t.Errorf("MeetsThreshold(%d, %d): got %v, want %v", tt.balance, tt.override, got, tt.want)
			}
		})
	}
}

func TestMeetsPremiumThreshold(t *testing.T) {
	inst := testInstrument()

	if inst.MeetsPremiumThreshold(49) {
		t.Error("49 should not clear premium threshold of 50")
	}
	if !inst.MeetsPremiumThreshold(50) {
		t.Error("50 should clear premium threshold of 50")
	}
}

func TestRoles(t *testing.T) {
	inst := testInstrument()

	tests := []struct {
		name    string
		account string
		admin   bool
		minter  bool
		pauser  bool
	}{
		{"owner holds all roles", "owner", true, true, true},
		{"minter only", "mint-bot", false, true, false},
		{"admin only", "ops", true, false, false},
		{"pauser only", "guardian", false, false, true},
		{"stranger", "mallory", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inst.IsAdmin(tt.account); got != tt.admin {
				t.Errorf("IsAdmin: got %v, want %v", got, tt.admin)
			}
			if got := inst.IsMinter(tt.account); got != tt.minter {
				t.Errorf("IsMinter: got %v, want %v", got, tt.minter)
			}
			if got := inst.IsPauser(tt.account); got != tt.pauser {
				t.Errorf("IsPauser: got %v, want %v", got, tt.pauser)
			}
		})
	}
}
