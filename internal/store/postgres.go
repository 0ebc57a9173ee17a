package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"citai-analytics-service/internal/analytics"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrNotMember          = errors.New("user is not a member of this restaurant")
)

// Member is a user's link to a restaurant. Owners have every permission.
type Member struct {
	Role        string
	IsOwner     bool
	Permissions []string
}

// Postgres reads the dashboard tables. All queries are scoped by restaurant.
type Postgres struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
}

func NewPostgres(db *pgxpool.Pool, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{DB: db, Logger: logger}
}

func (p *Postgres) LoadRestaurant(ctx context.Context, restaurantID string) (analytics.RestaurantInfo, error) {
	var (
		info     analytics.RestaurantInfo
		address  pgtype.Text
		phone    pgtype.Text
		email    pgtype.Text
		website  pgtype.Text
		logoURL  pgtype.Text
		timezone pgtype.Text
		currency []byte
	)
	err := p.DB.QueryRow(ctx, `
		select name, address, phone, email, website, logo_url, timezone, currency_config
		from restaurants
		where id = $1
	`, restaurantID).Scan(&info.Name, &address, &phone, &email, &website, &logoURL, &timezone, &currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return info, ErrRestaurantNotFound
	}
	if err != nil {
		return info, err
	}

	info.Address = textOrDefault(address, "")
	info.Phone = textOrDefault(phone, "")
	info.Email = textOrDefault(email, "")
	info.Website = textOrDefault(website, "")
	info.LogoURL = textOrDefault(logoURL, "")
	info.Timezone = textOrDefault(timezone, "")

	cfg, err := parseCurrencyConfig(currency)
	if err != nil {
		p.Logger.Warn("invalid currency_config", zap.String("restaurantId", restaurantID), zap.Error(err))
	}
	info.CurrencyConfig = cfg
	return info, nil
}

// parseCurrencyConfig returns nil for empty, null or currency-less configs.
func parseCurrencyConfig(raw []byte) (*analytics.CurrencyConfig, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var cfg analytics.CurrencyConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Currency == "" {
		return nil, nil
	}
	return &cfg, nil
}

// LoadOrders returns orders created at or after since, each with its line
// items and the menu item they reference.
func (p *Postgres) LoadOrders(ctx context.Context, restaurantID string, since time.Time) ([]analytics.OrderRow, error) {
	rows, err := p.DB.Query(ctx, `
		select o.id, o.total_amount, o.created_at, o.customer_email, coalesce(o.status, '')
		from orders o
		where o.restaurant_id = $1 and o.created_at >= $2
		order by o.created_at
	`, restaurantID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]analytics.OrderRow, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			row   analytics.OrderRow
			total pgtype.Numeric
			email pgtype.Text
		)
		if err := rows.Scan(&row.ID, &total, &row.CreatedAt, &email, &row.Status); err != nil {
			return nil, err
		}
		row.TotalAmount = numericPtr(total)
		row.CustomerEmail = textPtr(email)
		index[row.ID] = len(orders)
		orders = append(orders, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := p.DB.Query(ctx, `
		select oi.order_id, oi.quantity, oi.unit_price, oi.total_price,
			mi.id, mi.name, mi.price, mi.category_id
		from order_items oi
		join orders o on o.id = oi.order_id
		left join menu_items mi on mi.id = oi.menu_item_id
		where o.restaurant_id = $1 and o.created_at >= $2
	`, restaurantID, since)
	if err != nil {
		return nil, err
	}
	defer items.Close()

	for items.Next() {
		var (
			orderID    string
			item       analytics.OrderItemRow
			quantity   pgtype.Int4
			unitPrice  pgtype.Numeric
			totalPrice pgtype.Numeric
			menuID     pgtype.Text
			menuName   pgtype.Text
			menuPrice  pgtype.Numeric
			categoryID pgtype.Text
		)
		if err := items.Scan(&orderID, &quantity, &unitPrice, &totalPrice, &menuID, &menuName, &menuPrice, &categoryID); err != nil {
			return nil, err
		}
		i, ok := index[orderID]
		if !ok {
			continue
		}
		if quantity.Valid {
			item.Quantity = int(quantity.Int32)
		}
		item.UnitPrice = numericPtr(unitPrice)
		item.TotalPrice = numericPtr(totalPrice)
		if menuID.Valid {
			item.MenuItem = &analytics.MenuItemRow{
				ID:         menuID.String,
				Name:       textOrDefault(menuName, ""),
				Price:      numericToFloat64(menuPrice),
				CategoryID: textPtr(categoryID),
			}
		}
		orders[i].Items = append(orders[i].Items, item)
	}
	return orders, items.Err()
}

func (p *Postgres) LoadCategories(ctx context.Context, restaurantID string) ([]analytics.CategoryRow, error) {
	rows, err := p.DB.Query(ctx, `select id, name from categories where restaurant_id = $1 order by name`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]analytics.CategoryRow, 0)
	for rows.Next() {
		var c analytics.CategoryRow
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// LookupMember resolves the caller's access to a restaurant, either as its
// owner or through restaurant_staff.
func (p *Postgres) LookupMember(ctx context.Context, userID, restaurantID string) (Member, error) {
	var (
		ownerID     pgtype.Text
		role        pgtype.Text
		permissions []string
		active      pgtype.Bool
	)
	err := p.DB.QueryRow(ctx, `
		select r.owner_id::text, rs.role, coalesce(rs.permissions, '{}'), rs.is_active
		from restaurants r
		left join restaurant_staff rs on rs.restaurant_id = r.id and rs.user_id::text = $2
		where r.id = $1
	`, restaurantID, userID).Scan(&ownerID, &role, &permissions, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, ErrRestaurantNotFound
	}
	if err != nil {
		return Member{}, err
	}

	return memberFromRow(userID, ownerID, role, permissions, active)
}

func memberFromRow(userID string, ownerID, role pgtype.Text, permissions []string, active pgtype.Bool) (Member, error) {
	if ownerID.Valid && ownerID.String == userID {
		return Member{Role: "owner", IsOwner: true}, nil
	}
	if !role.Valid || (active.Valid && !active.Bool) {
		return Member{}, ErrNotMember
	}
	return Member{Role: role.String, Permissions: permissions}, nil
}
