// Package orders turns raw broker order history into aggregated order records
// and summarizes their cash effect.
package orders

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/eddiefleurent/scranton_spreads/internal/models"
)

// GroupResolution is the precision leg timestamps are truncated to before
// legs are grouped into one logical order.
const GroupResolution = 10 * time.Millisecond

// IsDeadState reports whether an order state never produced a fill.
func IsDeadState(state string) bool {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "cancelled", "canceled", "rejected":
		return true
	}
	return false
}

// Aggregate collapses leg rows into one OrderRecord per order id, or per
// creation timestamp for legs without one. Cancelled and rejected legs are dropped. The first leg of a group supplies
// every scalar field; the strikes of all legs form the strike signature.
// Records are returned in ascending timestamp order.
func Aggregate(legs []models.OrderLeg) ([]models.OrderRecord, error) {
	type group struct {
		first   models.OrderLeg
		key     time.Time
		strikes []float64
	}

	var groups []*group
	byKey := make(map[string]*group)
	for i, leg := range legs {
		if IsDeadState(leg.State) {
			continue
		}
		if leg.CreatedAt.IsZero() {
			return nil, &models.ValidationError{Row: i, Field: "created_at", Reason: "is required"}
		}
		if leg.Strike <= 0 || math.IsNaN(leg.Strike) || math.IsInf(leg.Strike, 0) {
			return nil, &models.ValidationError{Row: i, Field: "strike", Reason: "must be a positive number"}
		}

		key := leg.CreatedAt.Truncate(GroupResolution)
		id := "order:" + leg.OrderID
		if leg.OrderID == "" {
			id = "ts:" + strconv.FormatInt(key.UnixNano(), 10)
		}
		g, ok := byKey[id]
		if !ok {
			g = &group{first: leg, key: key}
			byKey[id] = g
			groups = append(groups, g)
		}
		g.strikes = append(g.strikes, leg.Strike)
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].key.Before(groups[j].key) })

	records := make([]models.OrderRecord, 0, len(groups))
	for _, g := range groups {
		leg := g.first
		records = append(records, models.OrderRecord{
			OrderID:           leg.OrderID,
			Timestamp:         g.key,
			Expiration:        leg.Expiration,
			Symbol:            strings.ToUpper(strings.TrimSpace(leg.Symbol)),
			StrikeSignature:   models.FormatStrikeSignature(g.strikes),
			OptionType:        leg.OptionType,
			Direction:         leg.Direction,
			OrderType:         leg.OrderType,
			OpeningStrategy:   leg.OpeningStrategy,
			ClosingStrategy:   leg.ClosingStrategy,
			Price:             leg.Price,
			QuantityRequested: leg.QuantityRequested,
			QuantityProcessed: leg.QuantityProcessed,
		})
	}
	return records, nil
}
