package fulfillment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/servexlb/wholesale-harmony-system-sub000/internal/catalog"
)

var ErrMissingField = errors.New("missing required field")

// validateRequest checks the kind-specific context fields before any money
// moves. Failures short-circuit the whole pipeline.
func validateRequest(req PlaceOrderRequest, kind catalog.Kind) error {
	if req.BuyerID == "" {
		return fmt.Errorf("%w: buyer id", ErrMissingField)
	}
	if req.ProductID == "" {
		return fmt.Errorf("%w: product id", ErrMissingField)
	}
	if req.OwnerID != "" && req.OwnerID != req.BuyerID && strings.TrimSpace(req.CustomerName) == "" {
		return fmt.Errorf("%w: customer name", ErrMissingField)
	}

	switch kind {
	case catalog.KindRecharge:
		if strings.TrimSpace(req.RechargeRef) == "" {
			return fmt.Errorf("%w: recharge account id", ErrMissingField)
		}
	case catalog.KindSubscription:
		if req.DurationMonths < 1 {
			return fmt.Errorf("%w: duration months", ErrMissingField)
		}
		if req.Credential != nil && !req.Credential.Complete() {
			return fmt.Errorf("%w: credential login and password", ErrMissingField)
		}
	}
	return nil
}
