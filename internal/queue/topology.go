package queue

import "github.com/eduka/notification-service/internal/models"

// Queue names, one durable queue per notification category.
const (
	OrderQueue   = "order.notification.queue"
	LibraryQueue = "library.notification.queue"
	HousingQueue = "housing.notification.queue"
	EmailQueue   = "email.notification.queue"
)

// Routing keys. Each queue is bound with the exact key for its category, so a
// message lands on exactly one queue.
const (
	OrderRoutingKey   = "notification.order"
	LibraryRoutingKey = "notification.library"
	HousingRoutingKey = "notification.housing"
	EmailRoutingKey   = "notification.email"
)

// Binding pairs a queue with its category and exact-match routing key.
type Binding struct {
	Category   models.Category
	Queue      string
	RoutingKey string
}

var bindings = []Binding{
	{models.CategoryOrder, OrderQueue, OrderRoutingKey},
	{models.CategoryLibrary, LibraryQueue, LibraryRoutingKey},
	{models.CategoryHousing, HousingQueue, HousingRoutingKey},
	{models.CategoryEmail, EmailQueue, EmailRoutingKey},
}

// Bindings returns the fixed queue/binding layout.
func Bindings() []Binding {
	return bindings
}

// RoutingKey maps a category to its routing key. The mapping is total over
// valid categories and has no fallback: an unknown category is a caller error.
func RoutingKey(category models.Category) (string, error) {
	switch category {
	case models.CategoryOrder:
		return OrderRoutingKey, nil
	case models.CategoryLibrary:
		return LibraryRoutingKey, nil
	case models.CategoryHousing:
		return HousingRoutingKey, nil
	case models.CategoryEmail:
		return EmailRoutingKey, nil
	default:
		return "", models.ErrInvalidCategory
	}
}
