package attributiondto

import "github.com/LavaJover/shvark-affiliate-ledger/internal/domain"

type RecordClickOutput struct {
	Click          *domain.AttributionClick
	DestinationURL string
}
