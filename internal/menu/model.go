package menu

// Path is the menu collection in the remote store.
const Path = "menu"

const (
	// Quantity bounds enforced on every adjustment.
	MinQuantity = 1
	MaxQuantity = 500

	quantityField = "foodQuantity"
)

// Item is one menu entry under menu/{key}. Quantity is string-encoded on the
// wire.
type Item struct {
	Key          string `json:"key"`
	FoodName     string `json:"foodName"`
	FoodPrice    string `json:"foodPrice"`
	FoodDesc     string `json:"foodDescription"`
	FoodImage    string `json:"foodImage"`
	FoodIngred   string `json:"foodIngredient"`
	FoodQuantity string `json:"foodQuantity"`
}
