package redisx

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "staycore:v1"

func KeyUnitSummary(unitID uuid.UUID) string {
	return fmt.Sprintf("%s:unit:%s:summary", ns, unitID)
}

func KeyUnitCalendar(unitID uuid.UUID, start, end string) string {
	return fmt.Sprintf("%s:unit:%s:calendar:%s:%s", ns, unitID, start, end)
}

func KeyUnitCalendarPrefix(unitID uuid.UUID) string {
	return fmt.Sprintf("%s:unit:%s:calendar:*", ns, unitID)
}

func KeyBookingSummary(bookingID uuid.UUID) string {
	return fmt.Sprintf("%s:booking:%s:summary", ns, bookingID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelUnitsChanged() string {
	return ns + ":units:changed"
}
