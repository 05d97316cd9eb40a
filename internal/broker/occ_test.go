package broker

import (
	"testing"
	"time"
)

func TestParseOptionSymbol(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    OptionSymbol
		wantErr bool
	}{
		{
			name: "spy put",
			in:   "SPY241220P00450000",
			want: OptionSymbol{"SPY", time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC), OptionTypePut, 450},
		},
		{
			name: "fractional strike call",
			in:   "AAPL240621C00142500",
			want: OptionSymbol{"AAPL", time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), OptionTypeCall, 142.5},
		},
		{
			name: "one letter root lower type",
			in:   "F240119c00012000",
			want: OptionSymbol{"F", time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC), OptionTypeCall, 12},
		},
		{
			name: "surrounding spaces",
			in:   "  QQQ250117P00400000 ",
			want: OptionSymbol{"QQQ", time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC), OptionTypePut, 400},
		},
		{name: "stock symbol", in: "SPY", wantErr: true},
		{name: "bad type", in: "SPY241220X00450000", wantErr: true},
		{name: "non digit strike", in: "SPY241220P0045000A", wantErr: true},
		{name: "bad date", in: "SPY241340P00450000", wantErr: true},
		{name: "no root", in: "1241220P00450000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOptionSymbol(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseOptionSymbol(%q) = %+v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOptionSymbol(%q) error: %v", tt.in, err)
			}
			if got.Underlying != tt.want.Underlying || got.Type != tt.want.Type ||
				got.Strike != tt.want.Strike || !got.Expiration.Equal(tt.want.Expiration) {
				t.Fatalf("ParseOptionSymbol(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnderlyingFromSymbol(t *testing.T) {
	if got := UnderlyingFromSymbol("SPY241220P00450000"); got != "SPY" {
		t.Fatalf("got %q, want SPY", got)
	}
	if got := UnderlyingFromSymbol(" MSFT "); got != "MSFT" {
		t.Fatalf("got %q, want MSFT", got)
	}
}
