package order

// Collection paths in the remote store. Field and path names are part of the
// wire contract with the existing backend and must not change.
const (
	PendingPath   = "OrderDetails"
	CompletedPath = "CompletedOrder"
	UserPath      = "user"
	HistoryPath   = "BuyHistory"

	AcceptedField = "orderAccepted"
	TimeField     = "currentTime"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAccepted   Status = "ACCEPTED"
	StatusDispatched Status = "DISPATCHED"
)

// Order is one customer order as stored under OrderDetails/{pushKey} and,
// once dispatched, CompletedOrder/{pushKey}.
type Order struct {
	PushKey         string   `json:"itemPushKey"`
	UserName        string   `json:"userName"`
	UserUID         string   `json:"userUid"`
	TotalPrice      string   `json:"totalPrice"`
	FoodNames       []string `json:"foodNames"`
	FoodImages      []string `json:"foodImages"`
	Accepted        bool     `json:"orderAccepted"`
	PaymentReceived bool     `json:"paymentReceived"`
	CurrentTime     int64    `json:"currentTime"`
}

// Status derives the order's lifecycle state from its flags. Dispatched is
// not derivable from the record alone; it is the state of records living in
// CompletedOrder.
func (o Order) Status() Status {
	if o.Accepted {
		return StatusAccepted
	}
	return StatusPending
}

// FirstImage returns the first item image, or empty when none was uploaded.
func (o Order) FirstImage() string {
	if len(o.FoodImages) == 0 {
		return ""
	}
	return o.FoodImages[0]
}
