package esplora

import (
	"encoding/json"
	"fmt"
)

// feeRateTarget is the confirmation target, in blocks, used to pick the
// recommended fee rate. Three blocks favors timely confirmation over minimal
// cost.
const feeRateTarget = "3"

func (e *esplora) GetFeeRate() (float64, error) {
	resp, err := e.get("/fee-estimates")
	if err != nil {
		return 0, fmt.Errorf("retrieving fee estimates: %w", err)
	}

	estimates := map[string]float64{}
	if err := json.Unmarshal(resp, &estimates); err != nil {
		return 0, fmt.Errorf("retrieving fee estimates: %w", err)
	}

	rate, ok := estimates[feeRateTarget]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("no fee estimate for target %s blocks", feeRateTarget)
	}
	return rate, nil
}
