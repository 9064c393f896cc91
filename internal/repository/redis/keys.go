package redis

import "fmt"

const ns = "tixcheckout:v1"

func KeyEventLayout(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:layout", ns, eventID)
}

func KeyEventPricing(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:pricing", ns, eventID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemCheckout(eventID int64, holder, idemKey string) string {
	return fmt.Sprintf("%s:idem:checkout:%d:%s:%s", ns, eventID, holder, idemKey)
}

func ChannelInventoryChanged() string {
	return ns + ":inventory:changed"
}
