package database

// Menu catalog queries
const (
	InsertMenuItemSQL = `
		INSERT INTO menu_items (name, price_minor, category, image_url, available, prep_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	UpdateMenuItemSQL = `
		UPDATE menu_items
		SET name = $1, price_minor = $2, category = $3, image_url = $4, available = $5,
		    prep_minutes = $6, updated_at = NOW()
		WHERE id = $7`

	SetMenuAvailabilitySQL = `
		UPDATE menu_items SET available = $1, updated_at = NOW() WHERE id = $2`

	DeleteMenuItemSQL = `
		DELETE FROM menu_items WHERE id = $1`

	GetMenuItemSQL = `
		SELECT id, name, price_minor, category, image_url, available, prep_minutes, created_at, updated_at
		FROM menu_items WHERE id = $1`

	ListMenuItemsSQL = `
		SELECT id, name, price_minor, category, image_url, available, prep_minutes, created_at, updated_at
		FROM menu_items
		ORDER BY category, name`
)

// Cart queries. The upsert applies the quantity increment inside the
// statement so concurrent adds for the same line never lose updates.
const (
	UpsertCartLineSQL = `
		INSERT INTO cart_lines (user_id, menu_item_id, name, price_minor, image_url, quantity, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id, menu_item_id) DO UPDATE SET
			quantity = cart_lines.quantity + EXCLUDED.quantity,
			name = EXCLUDED.name,
			price_minor = EXCLUDED.price_minor,
			image_url = EXCLUDED.image_url
		RETURNING quantity`

	SetCartQuantitySQL = `
		UPDATE cart_lines SET quantity = $1 WHERE user_id = $2 AND menu_item_id = $3`

	DeleteCartLineSQL = `
		DELETE FROM cart_lines WHERE user_id = $1 AND menu_item_id = $2`

	ListCartLinesSQL = `
		SELECT user_id, menu_item_id, name, price_minor, image_url, quantity, added_at
		FROM cart_lines WHERE user_id = $1`

	ClearCartSQL = `
		DELETE FROM cart_lines WHERE user_id = $1`
)

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (number, user_id, student_name, student_email, total_minor,
			status, payment_method, payment_status, payment_ref, required_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	InsertOrderItemSQL = `
		INSERT INTO order_items (order_id, menu_item_id, name, price_minor, quantity)
		VALUES ($1, $2, $3, $4, $5)`

	InsertOrderStatusLogSQL = `
		INSERT INTO order_status_log (order_id, status, changed_by, notes)
		VALUES ($1, $2, $3, $4)`

	GetNextOrderSequenceSQL = `
		SELECT COALESCE(MAX(CAST(SUBSTRING(number FROM 'ORD_[0-9]{8}_([0-9]{3})') AS INTEGER)), 0) + 1
		FROM orders
		WHERE number LIKE $1`

	GetOrderByNumberSQL = `
		SELECT id, number, user_id, student_name, student_email, total_minor,
		       status, payment_method, payment_status, payment_ref, required_by, created_at, updated_at
		FROM orders WHERE number = $1`

	GetOrderItemsSQL = `
		SELECT menu_item_id, name, price_minor, quantity
		FROM order_items WHERE order_id = $1
		ORDER BY id`

	ListOrdersByUserSQL = `
		SELECT id, number, user_id, student_name, student_email, total_minor,
		       status, payment_method, payment_status, payment_ref, required_by, created_at, updated_at
		FROM orders WHERE user_id = $1
		ORDER BY created_at DESC`

	ListAllOrdersSQL = `
		SELECT id, number, user_id, student_name, student_email, total_minor,
		       status, payment_method, payment_status, payment_ref, required_by, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC`

	// Compare-and-set: the WHERE clause makes concurrent transition
	// attempts on the same order serialize on the current status.
	UpdateOrderStatusCASSQL = `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	UpdatePaymentStatusSQL = `
		UPDATE orders SET payment_status = $1, updated_at = NOW()
		WHERE id = $2`

	GetOrderStatusHistorySQL = `
		SELECT status, changed_by, changed_at, notes
		FROM order_status_log
		WHERE order_id = (SELECT id FROM orders WHERE number = $1)
		ORDER BY changed_at ASC`
)

// Push token queries
const (
	InsertPushTokenSQL = `
		INSERT INTO push_tokens (user_id, token)
		VALUES ($1, $2)
		ON CONFLICT (user_id, token) DO NOTHING`

	ListPushTokensSQL = `
		SELECT token FROM push_tokens WHERE user_id = $1`
)
