package httpgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/tix-checkout/internal/service/booking"
	"github.com/kirinyoku/tix-checkout/internal/service/checkout"
	"github.com/kirinyoku/tix-checkout/internal/service/lock"
	"github.com/kirinyoku/tix-checkout/internal/service/query"
)

const (
	retrySelection = "selection"
	retryPayment   = "payment"
)

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: string(checkout.KindInvalidInput)})
}

// respondErr maps a service error onto a status and a body that tells the
// client which step to retry.
func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	kind := checkout.KindOf(err)
	if errors.Is(err, query.ErrEventNotFound) {
		kind = checkout.KindNotFound
	}

	resp := ErrorResponse{Error: err.Error(), Kind: string(kind)}

	switch kind {
	case checkout.KindConflict, checkout.KindLockExpired:
		resp.Retry = retrySelection
		resp.UnitIDs = lock.UnitIDs(err)
		resp.Group = groupOf(err)
		c.JSON(http.StatusConflict, resp)

	case checkout.KindInvalidInput:
		var cie booking.CustomerInfoError
		switch {
		case errors.As(err, &cie):
			c.JSON(http.StatusUnprocessableEntity, resp)
		case errors.Is(err, booking.ErrNotPending), errors.Is(err, booking.ErrBookingExpired):
			c.JSON(http.StatusConflict, resp)
		default:
			resp.UnitIDs = invalidUnits(err)
			c.JSON(http.StatusBadRequest, resp)
		}

	case checkout.KindPartial, checkout.KindGateway:
		resp.Retry = retryPayment
		resp.Group = groupOf(err)
		resp.UnitIDs = lock.UnitIDs(err)
		c.JSON(http.StatusBadGateway, resp)

	case checkout.KindNotFound:
		c.JSON(http.StatusNotFound, resp)

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal error",
			Kind:  string(checkout.KindInternal),
		})
	}
}

func groupOf(err error) string {
	var ge checkout.GroupError
	if errors.As(err, &ge) {
		return string(ge.Group)
	}
	return ""
}

func invalidUnits(err error) []string {
	if ids := lock.UnitIDs(err); len(ids) > 0 {
		return ids
	}
	var ie checkout.InvalidItemError
	if errors.As(err, &ie) {
		return []string{ie.UnitID}
	}
	return nil
}
