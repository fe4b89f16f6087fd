package notifications

import (
	"github.com/nicholas-fedor/tagwatch/pkg/types"
)

// Product prefixes every notification title.
const Product = "tagwatch"

// Data is the notification template data model.
type Data struct {
	types.Event

	Product string
}

func newData(event types.Event) Data {
	return Data{Event: event, Product: Product}
}
