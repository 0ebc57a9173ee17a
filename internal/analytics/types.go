package analytics

import "time"

type Period struct {
	Total     float64 `json:"total"`
	Today     float64 `json:"today"`
	ThisWeek  float64 `json:"thisWeek"`
	ThisMonth float64 `json:"thisMonth"`
	Growth    float64 `json:"growth"`
}

type Customers struct {
	Total     int `json:"total"`
	New       int `json:"new"`
	Returning int `json:"returning"`
}

type TopItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// DaySales is one bucket of the trailing trend series. Date is either an
// ISO day (2006-01-02) or an hour label (15:00) for the today view.
type DaySales struct {
	Date    string  `json:"date"`
	Label   string  `json:"label"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

type HourSales struct {
	Hour    int     `json:"hour"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

type CategorySales struct {
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
	Orders   int     `json:"orders"`
}

// Data is an immutable analytics snapshot for one restaurant and time range.
type Data struct {
	Revenue             Period          `json:"revenue"`
	Orders              Period          `json:"orders"`
	Customers           Customers       `json:"customers"`
	TopItems            []TopItem       `json:"topItems"`
	SalesByDay          []DaySales      `json:"salesByDay"`
	SalesByHour         []HourSales     `json:"salesByHour"`
	CategoryPerformance []CategorySales `json:"categoryPerformance"`
}

func (d *Data) AverageOrderValue() float64 {
	if d == nil || d.Orders.Total <= 0 {
		return 0
	}
	return d.Revenue.Total / d.Orders.Total
}

func (d *Data) RetentionRate() float64 {
	if d == nil {
		return 0
	}
	total := d.Customers.Total
	if total < 1 {
		total = 1
	}
	return float64(d.Customers.Returning) / float64(total) * 100
}

type MenuItemRow struct {
	ID         string
	Name       string
	Price      float64
	CategoryID *string
}

type OrderItemRow struct {
	Quantity   int
	UnitPrice  *float64
	TotalPrice *float64
	MenuItem   *MenuItemRow
}

// Revenue prefers the stored line total and falls back to quantity times
// unit price, then menu price.
func (i OrderItemRow) Revenue() float64 {
	if i.TotalPrice != nil {
		return *i.TotalPrice
	}
	if i.UnitPrice != nil {
		return *i.UnitPrice * float64(i.Quantity)
	}
	if i.MenuItem != nil {
		return i.MenuItem.Price * float64(i.Quantity)
	}
	return 0
}

type OrderRow struct {
	ID            string
	TotalAmount   *float64
	CreatedAt     time.Time
	CustomerEmail *string
	Status        string
	Items         []OrderItemRow
}

func (o OrderRow) Amount() float64 {
	if o.TotalAmount == nil {
		return 0
	}
	return *o.TotalAmount
}

type CategoryRow struct {
	ID   string
	Name string
}

type CurrencyConfig struct {
	Currency string `json:"currency"`
	Position string `json:"position"`
}

type RestaurantInfo struct {
	Name           string          `json:"name"`
	Address        string          `json:"address,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	Email          string          `json:"email,omitempty"`
	Website        string          `json:"website,omitempty"`
	CurrencyConfig *CurrencyConfig `json:"currencyConfig,omitempty"`
	LogoURL        string          `json:"-"`
	Timezone       string          `json:"-"`
}
